package convert

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"ttsub/config"
)

// WriteTo generates output in the specified format at outputPath.
func (doc *Document) WriteTo(ctx context.Context, format config.OutputFmt, outputPath string, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch format {
	case config.OutputFmtAss:
		return writeFile(outputPath, doc.writeASS)
	case config.OutputFmtYaml:
		return writeFile(outputPath, doc.writeYAML)
	case config.OutputFmtText:
		return writeFile(outputPath, doc.writeText)
	case config.OutputFmtSqlite:
		return doc.writeSQLite(ctx, outputPath, log)
	}
	return fmt.Errorf("unsupported output format %s", format)
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	return w.Flush()
}
