package mcp

// ToolDefinitions describes the facade's five operations as MCP tools,
// matching the HTTP surface exposed by internal/api/router.go.
func ToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "memory_recall",
			Description: "Recall memories relevant to a query, fusing lexical and vector search.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query":  {Type: "string", Description: "search text"},
					"limit":  {Type: "number", Description: "max results", Default: 5},
					"entity": {Type: "string", Description: "optional entity filter"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "memory_store",
			Description: "Store a statement as a memory entry, extracting entity/key/value when not supplied.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"text":       {Type: "string"},
					"importance": {Type: "number", Default: 0.7},
					"category":   {Type: "string", Enum: []string{"preference", "decision", "entity", "fact", "other"}},
					"entity":     {Type: "string"},
					"key":        {Type: "string"},
					"value":      {Type: "string"},
					"decayClass": {Type: "string", Enum: []string{"permanent", "stable", "active", "session", "checkpoint"}},
				},
				Required: []string{"text"},
			},
		},
		{
			Name:        "memory_forget",
			Description: "Delete a memory by id, or return candidates matching a query for review.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"memoryId": {Type: "string"},
					"query":    {Type: "string"},
				},
			},
		},
		{
			Name:        "memory_checkpoint",
			Description: "Save or restore a work-in-progress checkpoint.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"action":          {Type: "string", Enum: []string{"save", "restore"}},
					"intent":          {Type: "string"},
					"state":           {Type: "string"},
					"expectedOutcome": {Type: "string"},
					"workingFiles":    {Type: "array", Items: &Items{Type: "string"}},
				},
				Required: []string{"action"},
			},
		},
		{
			Name:        "memory_prune",
			Description: "Run hard-expiry and/or soft-confidence-decay pruning.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"mode": {Type: "string", Enum: []string{"hard", "soft", "both"}, Default: "both"},
				},
			},
		},
	}
}
