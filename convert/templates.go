package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"golang.org/x/text/language"

	"ttsub/config"
)

// Values holds variables available for output name template expansion.
type Values struct {
	Context    string
	Name       string // source base name without extension
	SourceFile string // source path relative to input
	Input      string // detected input format
	Format     string // requested output format
	Ext        string
	Title      string
	Lang       string // language of the first cue which has one
	Cues       int
	Styles     int
}

func firstLang(doc *Document) string {
	for _, c := range doc.Cues {
		if c.Lang != language.Und {
			return c.Lang.String()
		}
	}
	return ""
}

func expandTemplate(doc *Document, name config.TemplateFieldName, field string, format config.OutputFmt) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:    string(name),
		Name:       strings.TrimSuffix(filepath.Base(doc.Source), filepath.Ext(doc.Source)),
		SourceFile: filepath.ToSlash(doc.Source),
		Input:      doc.Format.String(),
		Format:     format.String(),
		Ext:        format.Ext(),
		Title:      doc.Info.Title,
		Lang:       firstLang(doc),
		Cues:       len(doc.Cues),
		Styles:     len(doc.declaredStyles()),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
