package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ju4n97/storyreel/internal/model"
)

// ModelLister lists the model cache.
type ModelLister interface {
	List() []*model.ModelInstance
}

// ListModelsOutput is the huma output for the ListModels operation.
type ListModelsOutput struct {
	Body struct {
		Models []model.Info `json:"models"`
	}
}

// NewModelsHandler registers the model listing operation.
func NewModelsHandler(api huma.API, models ModelLister) {
	huma.Register(api, huma.Operation{
		OperationID: "list-models",
		Method:      http.MethodGet,
		Path:        "/models",
		Summary:     "List cached models and their status",
		Tags:        []string{"models"},
	}, func(ctx context.Context, _ *struct{}) (*ListModelsOutput, error) {
		out := &ListModelsOutput{}
		out.Body.Models = []model.Info{}
		for _, m := range models.List() {
			out.Body.Models = append(out.Body.Models, m.Info())
		}
		return out, nil
	})
}
