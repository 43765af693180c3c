package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/sevenseg/internal/api/models"
)

// AttributePathInput selects an attribute under a class and node.
type AttributePathInput struct {
	Class string `path:"class" example:"sevenseg" doc:"Device class"`
	Node  string `path:"node" example:"sevenseg" doc:"Node name"`
	Attr  string `path:"attr" example:"value" doc:"Attribute name"`
}

// AttributeStoreInput carries the text written to an attribute.
type AttributeStoreInput struct {
	AttributePathInput
	RawBody []byte `contentType:"text/plain"`
}

// AttributeShowResponse is the attribute text.
type AttributeShowResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func (s *Server) registerAttributeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "show-attribute",
		Method:      http.MethodGet,
		Path:        "/api/class/{class}/{node}/{attr}",
		Summary:     "Show Attribute",
		Description: "Read a published attribute as text",
		Tags:        []string{"class"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *AttributePathInput) (*AttributeShowResponse, error) {
		attr, err := s.registry.Attribute(input.Class, input.Node, input.Attr)
		if err != nil {
			return nil, statusError("Attribute not found", err)
		}
		return &AttributeShowResponse{
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(attr.Show()),
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "store-attribute",
		Method:      http.MethodPut,
		Path:        "/api/class/{class}/{node}/{attr}",
		Summary:     "Store Attribute",
		Description: "Write text to a published attribute. The value attribute takes an unsigned integer 0-9 with an optional trailing newline.",
		Tags:        []string{"class"},
		Errors:      []int{400, 401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *AttributeStoreInput) (*models.AttributeStoreResponse, error) {
		attr, err := s.registry.Attribute(input.Class, input.Node, input.Attr)
		if err != nil {
			return nil, statusError("Attribute not found", err)
		}
		n, err := attr.Store(string(input.RawBody))
		if err != nil {
			return nil, statusError("Store failed", err)
		}
		return &models.AttributeStoreResponse{
			Body: models.AttributeStoreData{Count: n},
		}, nil
	})
}
