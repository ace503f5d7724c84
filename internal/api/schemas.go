package api

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	z "github.com/Oudwins/zog"

	"stratos/internal/pipeline"
)

func commandNames() []string {
	commands := pipeline.Commands()
	names := make([]string, 0, len(commands))
	for _, c := range commands {
		names = append(names, string(c))
	}
	return names
}

var submitFileSchema = z.Struct(z.Shape{
	"Path":     z.String().Required(z.Message("file path is required")).Trim().Transform(cleanPathTransform),
	"Name":     z.String().Optional().Trim(),
	"MimeType": z.String().Optional().Trim(),
})

var submitSchema = z.Struct(z.Shape{
	"Command": z.String().Required(z.Message("command is required")).Trim().Transform(lowerTransform).
		OneOf(commandNames(), z.Message("command must be one of "+strings.Join(commandNames(), ", "))),
	"Files": z.Slice(submitFileSchema).Min(1, z.Message("at least one file is required")),
})

// submitOptions holds the options checked at submission. Other options are
// passed through and validated by the pipeline that reads them.
type submitOptions struct {
	Format string
}

var submitOptionsSchema = z.Struct(z.Shape{
	"Format": z.String().Optional().Trim().
		Match(regexp.MustCompile(pipeline.FormatPattern), z.Message("format must be 1-10 letters or digits")),
})

func optionsForValidation(options map[string]any) submitOptions {
	var opts submitOptions
	if raw, ok := options["format"]; ok && raw != nil {
		opts.Format = fmt.Sprint(raw)
	}
	return opts
}

func cleanPathTransform(valPtr *string, _ z.Ctx) error {
	*valPtr = filepath.Clean(*valPtr)
	return nil
}

func lowerTransform(valPtr *string, _ z.Ctx) error {
	*valPtr = strings.ToLower(*valPtr)
	return nil
}
