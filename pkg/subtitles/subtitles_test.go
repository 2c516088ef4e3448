package subtitles

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewDonelson/slideshow-compositor/pkg/render/rendertest"
)

func style() Style {
	return Style{
		PlayResX: 1080, PlayResY: 1920,
		FontName: "Arial", FontSize: 24,
		FontColor: "FFCC00", OutlineColor: "000000", ShadowColor: "102030",
		Outline: 1, Alignment: 2,
		ShadowEnabled: true, ShadowOpacity: 0.5,
		MarginL: 10, MarginR: 10, MarginV: 10,
	}
}

func TestGroupRespectsWidth(t *testing.T) {
	words := []Word{
		{Text: " Hello", Start: 0, End: 0.4},
		{Text: "world", Start: 0.5, End: 0.9},
		{Text: "", Start: 1, End: 1},
		{Text: "again", Start: 1.0, End: 1.4},
	}
	lines := Group(words, 11, 0)
	require.Len(t, lines, 2)
	assert.Equal(t, Line{Text: "Hello world", Start: 0, End: 0.9}, lines[0])
	assert.Equal(t, Line{Text: "again", Start: 1.0, End: 1.4}, lines[1])

	for _, l := range Group(words, 6, 2) {
		assert.LessOrEqual(t, len(l.Text), 6)
		assert.GreaterOrEqual(t, l.Start, 2.0)
	}
	assert.Len(t, Group([]Word{{Text: "extraordinarily"}}, 5, 0), 1)
	assert.Empty(t, Group(nil, 42, 0))
}

func TestFormatTime(t *testing.T) {
	cases := map[float64]string{
		0:       "0:00:00.00",
		1.29:    "0:00:01.29",
		61.5:    "0:01:01.50",
		3725.07: "1:02:05.07",
		-3:      "0:00:00.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatTime(in), "%v", in)
	}
}

func TestRenderDocument(t *testing.T) {
	doc := Render([]Word{{Text: "Hi", Start: 5, End: 5.5}, {Text: "there", Start: 5.6, End: 6}}, Options{Style: style(), MaxLineWidth: 42, TimeOffset: 1.5})

	assert.True(t, strings.HasPrefix(doc, "[Script Info]\nScriptType: v4.00+\nPlayResX: 1080\nPlayResY: 1920\n"))
	assert.Contains(t, doc, "Style: Default,Arial,24,&H0000CCFF,&H00FFFFFF,&H00000000,&H00302010,-1,0,0,0,100,100,0,0,1,1,1,2,10,10,10,1\n")
	assert.Contains(t, doc, "[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	assert.True(t, strings.HasSuffix(doc, "Dialogue: 0,0:00:06.50,0:00:07.50,Default,,0,0,0,,Hi there\n"))
}

func TestRenderUsesMargins(t *testing.T) {
	st := style()
	st.MarginL, st.MarginR, st.MarginV = 20, 30, 80
	doc := Render(nil, Options{Style: st})
	assert.Contains(t, doc, ",1,1,2,20,30,80,1\n")
}

func TestForceStyle(t *testing.T) {
	assert.Equal(t,
		"FontName=Go Regular,FontSize=24,PrimaryColour=&H0000CCFF,OutlineColour=&H00000000,Outline=1,Alignment=2,BackColour=&H7F302010,Shadow=1",
		ForceStyle(style(), "Go Regular"))

	st := style()
	st.ShadowEnabled = false
	assert.True(t, strings.HasSuffix(ForceStyle(st, "Arial"), ",Alignment=2,Shadow=0"))
}

func TestBGR(t *testing.T) {
	assert.Equal(t, "563412", BGR("123456"))
	assert.Equal(t, "CCBBAA", BGR("#aabbcc"))
	assert.Equal(t, "FFFFFF", BGR("bad"))
}

func TestWriteASS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs", "voiceover.ass")
	require.NoError(t, WriteASS([]Word{{Text: "x", Start: 0, End: 1}}, path, Options{Style: style()}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Dialogue: 0,0:00:00.00,0:00:01.00,Default,,0,0,0,,x")
}

// whisperRunner writes a canned transcription where whisper would.
type whisperRunner struct {
	*rendertest.Recorder
	json string
}

func (w whisperRunner) Run(ctx context.Context, stage string, args []string) error {
	if err := w.Recorder.Run(ctx, stage, args); err != nil {
		return err
	}
	dir := args[len(args)-1]
	stem := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	return os.WriteFile(filepath.Join(dir, stem+".json"), []byte(w.json), 0o644)
}

func TestWhisperCLITranscribe(t *testing.T) {
	dir := t.TempDir()
	rec := rendertest.NewRecorder()
	rec.NoOutput = true
	runner := whisperRunner{Recorder: rec, json: `{"text":"hello there friend","segments":[
		{"text":"hello there","start":0,"end":1,"words":[{"word":" hello","start":0,"end":0.4},{"word":" there","start":0.5,"end":1}]},
		{"text":"friend","start":1.2,"end":1.6,"words":[{"word":" friend","start":1.2,"end":1.6}]}]}`}

	w := NewWhisperCLI(runner, "", "en", dir)
	words, err := w.Transcribe(context.Background(), "/a/voiceover.mp3")
	require.NoError(t, err)
	require.Len(t, words, 3)
	assert.Equal(t, Word{Text: " friend", Start: 1.2, End: 1.6}, words[2])

	call, ok := rec.Find("transcribe")
	require.True(t, ok)
	assert.True(t, call.Has("--model", "base"))
	assert.True(t, call.Has("--language", "en"))
	assert.True(t, call.Has("--word_timestamps", "True"))
	assert.True(t, call.Has("--output_dir", dir))
}

func TestWhisperCLIFailure(t *testing.T) {
	w := NewWhisperCLI(rendertest.NewRecorder("transcribe"), "base", "", t.TempDir())
	_, err := w.Transcribe(context.Background(), "/a/voiceover.mp3")
	assert.ErrorIs(t, err, rendertest.ErrInjected)
}
