package governor

// inferSchema produces a per-field type description: for a list, from its
// first element; for a record, from the top-level keys; for a scalar, the
// type name itself.
func inferSchema(v *Value) any {
	switch v.Kind() {
	case KindList:
		if v.Len() == 0 {
			return map[string]string{}
		}
		return inferSchema(v.Items()[0])
	case KindRecord:
		schema := make(map[string]string, v.Len())
		for _, key := range v.Keys() {
			field, _ := v.Field(key)
			schema[key] = field.typeName()
		}
		return schema
	default:
		return v.typeName()
	}
}

// fieldNames returns the field names of a list's first element, or of the
// record itself, in sorted order.
func fieldNames(v *Value) []string {
	switch v.Kind() {
	case KindList:
		if v.Len() == 0 {
			return nil
		}
		return fieldNames(v.Items()[0])
	case KindRecord:
		return v.Keys()
	default:
		return nil
	}
}

// sampleData returns a small structural sample: the first 3 elements of a
// list, or the first 5 fields of a record.
func sampleData(v *Value) any {
	switch v.Kind() {
	case KindList:
		count := min(3, v.Len())
		sample := make([]any, count)
		for i := range count {
			sample[i] = v.Items()[i].ToAny()
		}
		return sample
	case KindRecord:
		sample := make(map[string]any)
		for i, key := range v.Keys() {
			if i >= 5 {
				break
			}
			field, _ := v.Field(key)
			sample[key] = field.ToAny()
		}
		return sample
	default:
		return v.ToAny()
	}
}
