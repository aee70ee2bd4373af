package tools

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/petasbytes/code-agent/internal/fsops"
)

type ListFilesInput struct {
	Path     string `json:"path,omitempty" jsonschema_description:"Optional relative path to list files from. Defaults to current directory if not provided."`
	Page     int    `json:"page,omitempty" jsonschema_description:"1-based page number (default 1)."`
	PageSize int    `json:"page_size,omitempty" jsonschema_description:"Page size (default 200)."`
}

const defaultListFilesPageSize = 200

var ListFilesDefinition = ToolDefinition{
	Name:        "list_files",
	Description: "List files and directories at a given path. If no path is provided, lists files in the current directory. Directories end with a slash.",
	InputSchema: ListFilesInputSchema,
	Function:    ListFiles,
}

var ListFilesInputSchema = GenerateSchema[ListFilesInput]()

// ListFiles returns a JSON array of entry names, sorted and paged.
// Out-of-range pages yield "[]".
func ListFiles(_ context.Context, input json.RawMessage) Result {
	var in ListFilesInput
	if err := decodeInput(input, &in); err != nil {
		return Error(err)
	}
	page := max(in.Page, 1)
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = defaultListFilesPageSize
	}

	names, err := fsops.ListFiles(in.Path)
	if err != nil {
		return Error(err)
	}
	sort.Strings(names)

	start := (page - 1) * pageSize
	if start >= len(names) {
		return Text("[]")
	}
	end := min(start+pageSize, len(names))
	return JSON(names[start:end])
}
