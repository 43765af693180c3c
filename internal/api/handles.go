package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/sevenseg/internal/api/models"
	"github.com/smazurov/sevenseg/internal/devnode"
)

// HandlePathInput selects an open handle on a node.
type HandlePathInput struct {
	NodePathInput
	Handle string `path:"handle" example:"0b6f3a52-8d1e-4f7e-9a58-0e3c9d2f1b7a" doc:"Open handle id"`
}

// HandleReadInput is a read of up to Count bytes.
type HandleReadInput struct {
	HandlePathInput
	Count int `query:"count" default:"64" minimum:"0" maximum:"4096" doc:"Read buffer size in bytes"`
}

// HandleWriteInput carries the bytes of one write call.
type HandleWriteInput struct {
	HandlePathInput
	RawBody []byte `contentType:"application/octet-stream"`
}

// HandleSeekInput repositions a handle.
type HandleSeekInput struct {
	HandlePathInput
	Body models.SeekRequestData
}

func (s *Server) registerHandleRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "open-node",
		Method:        http.MethodPost,
		Path:          "/api/dev/{node}/open",
		Summary:       "Open Node",
		Description:   "Open the stream node and return a handle positioned at 0. Handles left unused are closed by the daemon.",
		Tags:          []string{"dev"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{401, 404, 429},
		Security:      withAuth(),
	}, func(ctx context.Context, input *NodePathInput) (*models.HandleResponse, error) {
		hid, err := s.registry.Open(input.Node)
		if err != nil {
			return nil, statusError("Failed to open node", err)
		}
		return &models.HandleResponse{
			Body: models.HandleData{Node: input.Node, Handle: hid},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "read-handle",
		Method:      http.MethodGet,
		Path:        "/api/dev/{node}/handles/{handle}",
		Summary:     "Read",
		Description: "Read from an open handle. A read at position 0 returns the digit and a newline; any other position reads end of file.",
		Tags:        []string{"dev"},
		Errors:      []int{400, 401, 404, 410},
		Security:    withAuth(),
	}, func(ctx context.Context, input *HandleReadInput) (*models.ReadResponse, error) {
		h, err := s.registry.Handle(input.Node, input.Handle)
		if err != nil {
			return nil, statusError("Handle not found", err)
		}

		buf := make([]byte, input.Count)
		n, err := h.Read(buf)
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return nil, statusError("Read failed", err)
		}
		return &models.ReadResponse{
			Body: models.ReadData{
				Data:     buf[:n],
				Text:     string(buf[:n]),
				Count:    n,
				EOF:      eof,
				Position: position(h),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "write-handle",
		Method:      http.MethodPut,
		Path:        "/api/dev/{node}/handles/{handle}",
		Summary:     "Write",
		Description: "Issue one write call with the request body. Only the first byte is consumed; it must be 0-9.",
		Tags:        []string{"dev"},
		Errors:      []int{400, 401, 404, 410},
		Security:    withAuth(),
	}, func(ctx context.Context, input *HandleWriteInput) (*models.WriteResponse, error) {
		h, err := s.registry.Handle(input.Node, input.Handle)
		if err != nil {
			return nil, statusError("Handle not found", err)
		}
		n, err := h.Write(input.RawBody)
		if err != nil {
			return nil, statusError("Write failed", err)
		}
		return &models.WriteResponse{
			Body: models.WriteData{Count: n, Position: position(h)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "seek-handle",
		Method:      http.MethodPost,
		Path:        "/api/dev/{node}/handles/{handle}/seek",
		Summary:     "Seek",
		Description: "Reposition an open handle. The node reports a size of 0.",
		Tags:        []string{"dev"},
		Errors:      []int{400, 401, 404, 410},
		Security:    withAuth(),
	}, func(ctx context.Context, input *HandleSeekInput) (*models.HandleResponse, error) {
		h, err := s.registry.Handle(input.Node, input.Handle)
		if err != nil {
			return nil, statusError("Handle not found", err)
		}
		pos, err := h.Seek(input.Body.Offset, input.Body.Whence)
		if err != nil {
			return nil, statusError("Seek failed", err)
		}
		return &models.HandleResponse{
			Body: models.HandleData{Node: input.Node, Handle: input.Handle, Position: pos},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "close-handle",
		Method:        http.MethodDelete,
		Path:          "/api/dev/{node}/handles/{handle}",
		Summary:       "Close",
		Description:   "Close an open handle",
		Tags:          []string{"dev"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404},
		Security:      withAuth(),
	}, func(ctx context.Context, input *HandlePathInput) (*struct{}, error) {
		if err := s.registry.CloseHandle(input.Node, input.Handle); err != nil {
			return nil, statusError("Failed to close handle", err)
		}
		return &struct{}{}, nil
	})
}

func position(h devnode.Handle) int64 {
	pos, err := h.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	return pos
}
