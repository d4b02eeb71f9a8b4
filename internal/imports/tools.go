// Package imports pulls in every tool package for its registration side
// effect. main imports this package blank.
package imports

import (
	_ "github.com/mcptools/docvault/internal/tools/documents"
)
