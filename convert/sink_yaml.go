package convert

import (
	"io"

	"golang.org/x/text/language"
	yaml "gopkg.in/yaml.v3"

	"ttsub/ass"
	"ttsub/style"
	"ttsub/subtitle"
	"ttsub/timing"
)

type yamlStyle struct {
	Name       string `yaml:"name"`
	FontFamily string `yaml:"font_family"`
	FontSize   int    `yaml:"font_size"`
	Bold       bool   `yaml:"bold,omitempty"`
	Italic     bool   `yaml:"italic,omitempty"`
	Color      string `yaml:"color"`
	BackColor  string `yaml:"back_color"`
	Alignment  int    `yaml:"alignment"`
}

type yamlCue struct {
	ReadOrder int64  `yaml:"read_order"`
	Start     string `yaml:"start"`
	End       string `yaml:"end"`
	Layer     int    `yaml:"layer,omitempty"`
	Style     string `yaml:"style"`
	Region    string `yaml:"region,omitempty"`
	Lang      string `yaml:"lang,omitempty"`
	Text      string `yaml:"text"`
	Plain     string `yaml:"plain"`
}

type yamlDocument struct {
	Source      string      `yaml:"source"`
	Format      string      `yaml:"format"`
	Title       string      `yaml:"title,omitempty"`
	PlayResX    int         `yaml:"play_res_x"`
	PlayResY    int         `yaml:"play_res_y"`
	Styles      []yamlStyle `yaml:"styles,omitempty"`
	Regions     []string    `yaml:"regions,omitempty"`
	Cues        []yamlCue   `yaml:"cues"`
	Diagnostics []string    `yaml:"diagnostics,omitempty"`
}

func toYAMLStyle(s style.Style) yamlStyle {
	return yamlStyle{
		Name:       s.Name,
		FontFamily: s.FontFamily,
		FontSize:   s.FontSize,
		Bold:       s.Bold,
		Italic:     s.Italic,
		Color:      ass.FormatColor(s.Color),
		BackColor:  ass.FormatColor(s.BackColor),
		Alignment:  int(s.Alignment),
	}
}

func toYAMLCue(c subtitle.Cue, rate int64) yamlCue {
	out := yamlCue{
		ReadOrder: c.ReadOrder,
		Start:     timing.Format(c.Start, rate),
		End:       timing.Format(c.End(), rate),
		Layer:     c.Layer,
		Style:     c.Style.Name,
		Region:    c.Region.Name,
		Text:      c.Text,
		Plain:     subtitle.PlainText(c.Runs),
	}
	if c.Lang != language.Und {
		out.Lang = c.Lang.String()
	}
	return out
}

func (doc *Document) writeYAML(w io.Writer) error {
	out := yamlDocument{
		Source:   doc.Source,
		Format:   doc.Format.String(),
		Title:    doc.Info.Title,
		PlayResX: doc.Info.PlayResX,
		PlayResY: doc.Info.PlayResY,
		Cues:     make([]yamlCue, 0, len(doc.Cues)),
	}
	for _, s := range doc.declaredStyles() {
		out.Styles = append(out.Styles, toYAMLStyle(s))
	}
	for _, r := range doc.Regions {
		out.Regions = append(out.Regions, r.Name)
	}
	for _, c := range doc.Cues {
		out.Cues = append(out.Cues, toYAMLCue(c, doc.Rate))
	}
	for _, d := range doc.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, d.Error())
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
