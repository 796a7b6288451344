package command

import (
	"context"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/cockroachdb/errors"
	"github.com/fatih/color"

	"github.com/glesirok/armedit/pkg/processor"
)

// FileCommands 用同样的指令编辑本地 JSON/YAML 文档
func FileCommands() *Registry {
	edit := RegisterPathMutationArguments(Command{
		Key:   Key{Noun: "file", Verb: "edit"},
		Short: "Edit local JSON or YAML documents with --set/--add/--remove",
		Arguments: []Argument{
			{Dest: "input", Shorthand: "i", Help: "Input file or directory.", Required: true},
			{Dest: "output_path", Help: "Output file or directory (defaults to in-place)."},
			{Dest: "backup", Kind: KindBool, Help: "Backup original files with .bak extension."},
		},
		Example: heredoc.Doc(`
			# Edit an exported ARM template in place, keeping a backup
			armedit file edit -i vnet.json --set properties.addressSpace.addressPrefixes[0]=10.1.0.0/16 --backup

			# Apply a rule file to every document in a directory
			armedit file edit -i ./templates --output-path ./out --rules rules.yaml
		`),
		Handler: editFiles,
	})

	return NewRegistry().
		Group("file", "Edit local resource documents").
		MustRegister(edit)
}

func editFiles(_ context.Context, inv *Invocation) (any, error) {
	proc, err := inv.Processor()
	if err != nil {
		return nil, err
	}

	input, output := inv.String("input"), inv.String("output_path")
	dryRun, backup := inv.Bool("dry_run"), inv.Bool("backup")

	info, err := os.Stat(input)
	if err != nil {
		return nil, errors.Wrap(err, "stat input")
	}
	success := color.New(color.FgGreen)

	if info.IsDir() {
		if err := proc.ProcessDirectory(input, output, dryRun, backup); err != nil {
			return nil, err
		}
		if !dryRun {
			success.Fprintln(inv.Err, "✓ All files processed successfully")
		}
		return nil, nil
	}

	if output == "" {
		output = input
	}
	// 只有原地覆盖才备份
	if backup && !dryRun && output == input {
		if err := processor.Backup(input); err != nil {
			return nil, err
		}
	}
	if err := proc.ProcessFile(input, output, dryRun); err != nil {
		return nil, err
	}

	if !dryRun {
		if output == input {
			success.Fprintf(inv.Err, "✓ Processed: %s\n", input)
		} else {
			success.Fprintf(inv.Err, "✓ Processed: %s → %s\n", input, output)
		}
	}
	return nil, nil
}
