package publisher

import (
	"encoding/base64"
	"errors"
	"testing"

	"mystery_story_studio/generator"
)

func TestFileName(t *testing.T) {
	tests := []struct{ title, ext, want string }{
		{"El Reloj de Arena", ".doc", "El_Reloj_de_Arena.doc"},
		{"Sin espacios", ".wav", "Sin_espacios.wav"},
		{"Uno", ".doc", "Uno.doc"},
	}
	for _, tt := range tests {
		if got := FileName(tt.title, tt.ext); got != tt.want {
			t.Errorf("FileName(%q, %q) = %q, want %q", tt.title, tt.ext, got, tt.want)
		}
	}
}

func TestDocumentArtifact(t *testing.T) {
	a := DocumentArtifact("  La Casa Vacía  \nHabía una vez.")
	if a.Name != "La_Casa_Vacía.doc" {
		t.Errorf("name = %q", a.Name)
	}
	if a.MediaType != DocumentMediaType {
		t.Errorf("media type = %q", a.MediaType)
	}
	if len(a.Data) == 0 {
		t.Errorf("empty document")
	}
}

func TestDocumentArtifactDefaultTitle(t *testing.T) {
	a := DocumentArtifact("\nCuerpo sin título.")
	if a.Name != "Cuento_de_Misterio.doc" {
		t.Fatalf("name = %q", a.Name)
	}
}

func TestAudioArtifact(t *testing.T) {
	n := generator.Narration{Title: "El Eco", Samples: base64.StdEncoding.EncodeToString([]byte{0, 0})}
	a, err := AudioArtifact(n)
	if err != nil {
		t.Fatalf("AudioArtifact: %v", err)
	}
	if a.Name != "El_Eco.wav" || a.MediaType != AudioMediaType {
		t.Errorf("artifact = %q %q", a.Name, a.MediaType)
	}
	if len(a.Data) != WAVHeaderSize+2 {
		t.Errorf("len = %d", len(a.Data))
	}
}

func TestAudioArtifactDecodeError(t *testing.T) {
	_, err := AudioArtifact(generator.Narration{Title: "x", Samples: "%%%"})
	if !errors.Is(err, generator.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}
