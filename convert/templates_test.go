package convert

import (
	"testing"

	"ttsub/config"
)

func TestExpandTemplate(t *testing.T) {
	script := decodeSample(t, sampleScript, "show/ep1.ass")
	movie := decodeSample(t, sampleTTML, "movie.dfxp")

	tests := []struct {
		name   string
		doc    *Document
		field  string
		format config.OutputFmt
		want   string
	}{
		{"name", script, "{{ .Name }}", config.OutputFmtAss, "ep1"},
		{"source", script, "{{ .SourceFile }}", config.OutputFmtAss, "show/ep1.ass"},
		{"formats", movie, "{{ .Input }}-{{ .Format }}{{ .Ext }}", config.OutputFmtYaml, "ttml-yaml.yaml"},
		{"counts", script, "{{ .Cues }}/{{ .Styles }}", config.OutputFmtText, "2/2"},
		{"language", movie, "{{ .Lang | default \"und\" }}", config.OutputFmtAss, "de"},
		{"no language", script, "{{ .Lang | default \"und\" }}", config.OutputFmtAss, "und"},
		{"context", script, "{{ .Context }}", config.OutputFmtAss, "output_name_template"},
		{"sprig", script, "{{ .Title | title | replace \" \" \"_\" }}", config.OutputFmtAss, "Sample"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandTemplate(tt.doc, config.OutputNameTemplateFieldName, tt.field, tt.format)
			if err != nil {
				t.Fatalf("expandTemplate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandTemplate() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := expandTemplate(script, config.OutputNameTemplateFieldName, "{{ .Name ", config.OutputFmtAss); err == nil {
		t.Error("unparsable template must be an error")
	}
	if _, err := expandTemplate(script, config.OutputNameTemplateFieldName, "{{ .Missing }}", config.OutputFmtAss); err == nil {
		t.Error("unknown field must be an error")
	}
}
