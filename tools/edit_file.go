package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petasbytes/code-agent/internal/fsops"
)

type EditFileInput struct {
	FilePath  string `json:"file_path" jsonschema_description:"Relative path of the file to edit or create."`
	OldString string `json:"old_string" jsonschema_description:"Exact text to replace; must occur exactly once. Empty creates a new file."`
	NewString string `json:"new_string" jsonschema_description:"Replacement text, or the full content of a new file."`
}

var EditFileDefinition = ToolDefinition{
	Name: "edit_file",
	Description: `Make edits to a text file.

Replaces old_string with new_string in the given file. old_string and new_string MUST be different.
old_string must match exactly once; include surrounding lines to make it unique.

If old_string is empty, a new file is created with new_string as its content. The file must not already exist.
`,
	InputSchema: EditFileInputSchema,
	Function:    EditFile,
}

var EditFileInputSchema = GenerateSchema[EditFileInput]()

func EditFile(_ context.Context, input json.RawMessage) Result {
	var in EditFileInput
	if err := decodeInput(input, &in); err != nil {
		return Error(err)
	}
	if in.FilePath == "" {
		return Errorf("file_path must not be empty")
	}

	if in.OldString == "" {
		if err := fsops.CreateFile(in.FilePath, in.NewString); err != nil {
			return Error(err)
		}
		return Text(fmt.Sprintf("Successfully created file %s", in.FilePath))
	}
	if in.OldString == in.NewString {
		return Errorf("old_string and new_string must be different")
	}

	content, err := fsops.ReadFile(in.FilePath)
	if err != nil {
		return Error(err)
	}

	switch n := strings.Count(content, in.OldString); n {
	case 0:
		return Errorf("old_string not found in %s", in.FilePath)
	case 1:
	default:
		return Errorf("old_string occurs %d times in %s; add surrounding context so it matches once", n, in.FilePath)
	}

	if err := fsops.WriteFile(in.FilePath, strings.Replace(content, in.OldString, in.NewString, 1)); err != nil {
		return Error(err)
	}
	return Text("OK")
}
