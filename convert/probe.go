package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"ttsub/archive"
	"ttsub/demux"
	"ttsub/state"
)

// ProbeInfo describes single probed subtitle stream.
type ProbeInfo struct {
	Source      string
	Format      demux.Format
	Score       int
	Packets     int
	Cues        int
	Diagnostics int
}

func (p ProbeInfo) String() string {
	return fmt.Sprintf("%s: format=%s score=%d packets=%d cues=%d diagnostics=%d",
		p.Source, p.Format, p.Score, p.Packets, p.Cues, p.Diagnostics)
}

// Probe reports detected format and decoding statistics for every source
// file or archive given on command line.
func Probe(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("probe")

	if cmd.Args().Len() == 0 {
		return errors.New("no input source has been specified")
	}
	if f := cmd.String("format"); len(f) > 0 {
		env.Cfg.Demux.Format = f
	}

	var failed int
	for _, src := range cmd.Args().Slice() {
		infos, err := probeSource(ctx, src, log)
		if err != nil {
			log.Error("Unable to probe", zap.String("source", src), zap.Error(err))
			failed++
			continue
		}
		for _, info := range infos {
			fmt.Fprintln(os.Stdout, info)
		}
	}
	if failed > 0 {
		return fmt.Errorf("unable to probe %d source(s)", failed)
	}
	return nil
}

func probeSource(ctx context.Context, src string, log *zap.Logger) ([]ProbeInfo, error) {
	isArchive, err := isArchiveFile(src)
	if err != nil {
		return nil, err
	}
	if !isArchive {
		f, err := os.Open(src)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		info, err := probeStream(ctx, f, filepath.Base(src), log)
		if err != nil {
			return nil, err
		}
		return []ProbeInfo{info}, nil
	}

	forced := forcedFormat(state.EnvFromContext(ctx))
	var infos []ProbeInfo
	err = archive.Walk(ctx, src, "", func(_ string, f *zip.File) error {
		if ok, err := isSubtitleInArchive(f, forced); err != nil || !ok {
			return nil
		}
		r, err := f.Open()
		if err != nil {
			return err
		}
		defer r.Close()

		info, err := probeStream(ctx, r, f.Name, log)
		if err != nil {
			log.Warn("Unable to probe file in archive", zap.String("archive", src), zap.String("file", f.Name), zap.Error(err))
			return nil
		}
		infos = append(infos, info)
		return nil
	})
	return infos, err
}

// probeStream detects format on stream head and decodes the whole stream to
// collect statistics.
func probeStream(ctx context.Context, r io.Reader, src string, log *zap.Logger) (ProbeInfo, error) {
	env := state.EnvFromContext(ctx)

	head := make([]byte, demux.ProbeSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ProbeInfo{}, err
	}
	head = head[:n]

	info := ProbeInfo{Source: src}
	info.Format, info.Score = demux.Probe(head)

	doc, err := decodeStream(ctx, io.MultiReader(bytes.NewReader(head), r), src, env.Cfg, log)
	if err != nil {
		return info, err
	}
	// forced format wins over detection
	info.Format = doc.Format
	info.Packets, info.Cues, info.Diagnostics = doc.Packets, len(doc.Cues), len(doc.Diagnostics)
	return info, nil
}
