package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/sevenseg/internal/api/models"
	"github.com/smazurov/sevenseg/internal/device"
	"github.com/smazurov/sevenseg/internal/devnode"
)

// NodePathInput selects a node by name.
type NodePathInput struct {
	Node string `path:"node" example:"sevenseg" doc:"Node name"`
}

// DeviceResponse wraps a single node.
type DeviceResponse struct {
	Body models.DeviceInfo
}

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List published display nodes with their lines and current digit",
		Tags:        []string{"devices"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.DeviceListResponse, error) {
		infos := s.deviceInfos()
		return &models.DeviceListResponse{
			Body: models.DeviceListData{
				Devices: infos,
				Count:   len(infos),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-device",
		Method:      http.MethodGet,
		Path:        "/api/devices/{node}",
		Summary:     "Get Device",
		Description: "Describe one published display node",
		Tags:        []string{"devices"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *NodePathInput) (*DeviceResponse, error) {
		for _, info := range s.deviceInfos() {
			if info.Name == input.Node {
				return &DeviceResponse{Body: info}, nil
			}
		}
		return nil, huma.Error404NotFound(fmt.Sprintf("Node %s not found", input.Node))
	})
}

func (s *Server) deviceInfos() []models.DeviceInfo {
	instances := make(map[string]*device.Instance)
	if s.devices != nil {
		for _, inst := range s.devices.Instances() {
			instances[inst.Name()] = inst
		}
	}

	nodes := s.registry.Nodes()
	infos := make([]models.DeviceInfo, 0, len(nodes))
	for _, n := range nodes {
		infos = append(infos, deviceInfo(n, instances[n.Name]))
	}
	return infos
}

func deviceInfo(n devnode.Node, inst *device.Instance) models.DeviceInfo {
	info := models.DeviceInfo{
		Name:        n.Name,
		Class:       n.Class,
		Dev:         n.Dev(),
		Attributes:  n.Attributes,
		OpenHandles: n.OpenHandles,
	}
	if inst == nil {
		return info
	}
	info.State = inst.State().String()
	info.Driver = inst.Driver()
	info.Lines = inst.Lines()
	if d := inst.Display(); d != nil {
		digit := d.Get()
		info.Digit = &digit
	}
	return info
}
