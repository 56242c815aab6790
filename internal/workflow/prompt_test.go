package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute_DataMarkers(t *testing.T) {
	out := Substitute("Write about [data:topic]", []Input{{Name: "topic", Value: "kilts"}})
	assert.Equal(t, "Write about kilts", out)
	assert.NotContains(t, out, "[data:topic]")
}

func TestSubstitute_DataMarkersLeaveBracesAlone(t *testing.T) {
	out := Substitute(`Return {"title": ...} for [data: topic] and [data:missing].`, []Input{{Name: "topic", Value: "tartan"}})
	assert.Equal(t, `Return {"title": ...} for tartan and .`, out)
}

func TestSubstitute_KeyedFallback(t *testing.T) {
	out := Substitute("Write about {topic}", []Input{{Name: "topic", Value: "kilts"}})
	assert.Equal(t, "Write about kilts", out)
}

func TestSubstitute_KeyedEscapesAndMissing(t *testing.T) {
	out := Substitute(`Use {{"json": true}} for {topic} and {unknown}; keep {not a key} and {`, []Input{{Name: "topic", Value: "sporrans"}})
	assert.Equal(t, `Use {"json": true} for sporrans and ; keep {not a key} and {`, out)
}

func TestBuildPrompt(t *testing.T) {
	inputs := []Input{{Name: "idea_seed", Value: "Kilt history"}, {Name: "idea_scope", Value: ""}}
	out := BuildPrompt("You are a blog editor.", "Propose a title for [data:idea_seed].", inputs)

	assert.Equal(t, "You are a blog editor.\n\nPropose a title for Kilt history.\n\nidea_seed: Kilt history\nidea_scope: ", out)
}

func TestBuildPrompt_IsDeterministic(t *testing.T) {
	inputs := []Input{{Name: "b", Value: "2"}, {Name: "a", Value: "1"}}
	first := BuildPrompt("sys", "task {a} {b}", inputs)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildPrompt("sys", "task {a} {b}", inputs))
	}
	assert.Equal(t, "sys\n\ntask 1 2\n\nb: 2\na: 1", first)
}

func TestBuildPrompt_SkipsEmptyParts(t *testing.T) {
	assert.Equal(t, "only task", BuildPrompt("  ", "only task", nil))
	assert.Equal(t, "", BuildPrompt("", "", nil))
}
