package publisher

import (
	"strings"

	"mystery_story_studio/generator"
)

const AudioMediaType = "audio/wav"

// Artifact is an exported file ready to be stored or downloaded.
type Artifact struct {
	Name      string
	MediaType string
	Data      []byte
}

// FileName replaces spaces in title with underscores and appends ext.
func FileName(title, ext string) string {
	return strings.ReplaceAll(title, " ", "_") + ext
}

// DocumentArtifact encodes story as a .doc named after its title.
func DocumentArtifact(story string) Artifact {
	title := generator.TitleOf(story)
	return Artifact{
		Name:      FileName(title, ".doc"),
		MediaType: DocumentMediaType,
		Data:      EncodeDocument(story, title),
	}
}

// AudioArtifact encodes a narration as a .wav named after its title.
func AudioArtifact(n generator.Narration) (Artifact, error) {
	data, err := EncodeAudio(n.Samples)
	if err != nil {
		return Artifact{}, err
	}
	title := n.Title
	if strings.TrimSpace(title) == "" {
		title = generator.DefaultTitle
	}
	return Artifact{
		Name:      FileName(title, ".wav"),
		MediaType: AudioMediaType,
		Data:      data,
	}, nil
}
