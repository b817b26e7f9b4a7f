package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ju4n97/storyreel/internal/pipeline"
)

// Narrator runs the narration pipeline.
type Narrator interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Artifact, error)
}

type (
	// NarrateRequestDTO is the request body for the Narrate operation.
	NarrateRequestDTO struct {
		Text        string `json:"text" minLength:"1" maxLength:"20000" doc:"One narration unit per non-blank line"`
		Mode        string `json:"mode,omitempty" enum:"video,audio,slideshow"`
		TranslateTo string `json:"translate_to,omitempty" doc:"Translate every line before narration"`
	}

	// CueDTO places one unit on the artifact timeline. Times are in seconds.
	CueDTO struct {
		Index int     `json:"index"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	}

	// WarningDTO reports a skipped unit.
	WarningDTO struct {
		Cause string `json:"cause"`
		Index int    `json:"index"`
		Line  int    `json:"line"`
	}
)

type (
	// NarrateInput is the huma input for the Narrate operation.
	NarrateInput struct {
		Body NarrateRequestDTO
	}

	// NarrateOutput is the huma output for the Narrate and NarrateAudio
	// operations. Body holds the encoded media.
	NarrateOutput struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		RequestID          string `header:"X-Request-ID"`
		Duration           string `header:"X-Storyreel-Duration"`
		Timeline           string `header:"X-Storyreel-Timeline"`
		TimelineCount      string `header:"X-Storyreel-Timeline-Count"`
		Warnings           string `header:"X-Storyreel-Warnings"`
		WarningCount       string `header:"X-Storyreel-Warning-Count"`
		Body               []byte
	}
)

// NarrateHandler handles HTTP requests for narration.
type NarrateHandler struct {
	narrator Narrator
}

// NewNarrateHandler creates a new NarrateHandler instance.
func NewNarrateHandler(api huma.API, narrator Narrator) *NarrateHandler {
	h := &NarrateHandler{narrator: narrator}

	huma.Register(api, huma.Operation{
		OperationID:   "narrate",
		Method:        http.MethodPost,
		Path:          "/narrate",
		Summary:       "Narrate text into audio or video",
		Tags:          []string{"narrate"},
		DefaultStatus: http.StatusOK,
	}, h.handleNarrate)

	return h
}

// handleNarrate handles the narrate operation.
func (h *NarrateHandler) handleNarrate(ctx context.Context, input *NarrateInput) (*NarrateOutput, error) {
	return narrate(ctx, h.narrator, pipeline.Request{
		Text:        input.Body.Text,
		Mode:        pipeline.Mode(input.Body.Mode),
		TranslateTo: input.Body.TranslateTo,
	})
}

func narrate(ctx context.Context, narrator Narrator, req pipeline.Request) (*NarrateOutput, error) {
	artifact, err := narrator.Run(ctx, req)
	if err != nil {
		return nil, toStatusError("failed to narrate", err)
	}

	out, err := artifactOutput(artifact)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to encode response headers", err)
	}

	return out, nil
}

func artifactOutput(a *pipeline.Artifact) (*NarrateOutput, error) {
	cues := make([]CueDTO, 0, len(a.Timeline))
	for _, c := range a.Timeline {
		cues = append(cues, CueDTO{
			Index: c.Index,
			Start: c.Start.Seconds(),
			End:   c.End.Seconds(),
		})
	}

	timeline, err := headerJSON(cues)
	if err != nil {
		return nil, err
	}

	out := &NarrateOutput{
		ContentType:        a.MIMEType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", a.Filename),
		RequestID:          a.ID,
		Duration:           strconv.FormatFloat(a.Duration.Seconds(), 'f', 3, 64),
		Timeline:           timeline,
		TimelineCount:      strconv.Itoa(len(cues)),
		Body:               a.Data,
	}

	if len(a.Warnings) > 0 {
		warnings := make([]WarningDTO, 0, len(a.Warnings))
		for _, w := range a.Warnings {
			warnings = append(warnings, WarningDTO{Index: w.Index, Line: w.Line, Cause: w.Cause})
		}

		raw, err := headerJSON(warnings)
		if err != nil {
			return nil, err
		}
		out.Warnings = raw
		out.WarningCount = strconv.Itoa(len(warnings))
	}

	return out, nil
}

// maxHeaderJSON bounds each JSON header. Proxies commonly reject header
// blocks above 8 KiB.
const maxHeaderJSON = 4096

// headerJSON encodes the longest prefix of items whose JSON fits in
// maxHeaderJSON bytes. The matching count header carries the full length so
// clients can tell a truncated list apart.
func headerJSON[T any](items []T) (string, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	if len(raw) <= maxHeaderJSON {
		return string(raw), nil
	}

	// The full list does not fit; the empty one always does.
	lo, hi := 0, len(items)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		raw, err := json.Marshal(items[:mid])
		if err != nil {
			return "", err
		}
		if len(raw) <= maxHeaderJSON {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	raw, err = json.Marshal(items[:lo])
	if err != nil {
		return "", err
	}

	return string(raw), nil
}
