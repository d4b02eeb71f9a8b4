// Package registry holds the process-wide tool registry. Tool packages
// register themselves from init(); main hands every registered tool to the
// MCP server. The registry also owns the shared logger and cache passed
// into tool executions.
package registry

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/mcptools/docvault/internal/tools"
	"github.com/sirupsen/logrus"
)

var (
	toolRegistry = make(map[string]tools.Tool)

	// disabledTools is the set of tool names disabled via environment
	disabledTools = make(map[string]bool)

	logger *logrus.Logger
	cache  *sync.Map
)

// Init initialises the registry's shared resources and parses the
// DISABLED_TOOLS environment variable.
func Init(l *logrus.Logger) {
	logger = l
	cache = &sync.Map{}

	disabledTools = make(map[string]bool)
	for name := range strings.SplitSeq(os.Getenv("DISABLED_TOOLS"), ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		disabledTools[name] = true
		logger.WithField("tool", name).Debug("Tool disabled via environment")
	}
}

// Register adds a tool implementation to the registry unless it has been
// disabled.
func Register(tool tools.Tool) {
	name := tool.Definition().Name
	if disabledTools[name] {
		if logger != nil {
			logger.WithField("tool", name).Debug("Tool not registered (disabled)")
		}
		return
	}

	toolRegistry[name] = tool
	if logger != nil {
		logger.WithField("tool", name).Debug("Tool registered")
	}
}

// GetTool retrieves a tool by name, returning false when unknown or
// disabled.
func GetTool(name string) (tools.Tool, bool) {
	if disabledTools[name] {
		return nil, false
	}
	tool, ok := toolRegistry[name]
	return tool, ok
}

// GetEnabledTools returns every registered tool that is not disabled.
func GetEnabledTools() map[string]tools.Tool {
	enabled := make(map[string]tools.Tool, len(toolRegistry))
	for name, tool := range toolRegistry {
		if disabledTools[name] {
			continue
		}
		enabled[name] = tool
	}
	return enabled
}

// GetEnabledToolNames returns the enabled tool names in sorted order.
func GetEnabledToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		if disabledTools[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetLogger returns the shared logger instance.
func GetLogger() *logrus.Logger {
	return logger
}

// GetCache returns the shared cache instance.
func GetCache() *sync.Map {
	return cache
}
