// Package api exposes the stereo kernels over HTTP for offline inspection
// and debugging of network outputs. Each request runs on a fresh stream
// with launch-synchronous checking, so kernel faults map onto the request
// that caused them.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parallaxml/parallax/internal/device"
	"github.com/parallaxml/parallax/internal/kernels"
	"github.com/parallaxml/parallax/internal/metrics"
	"github.com/parallaxml/parallax/internal/plugin"
	"github.com/parallaxml/parallax/internal/tensor"
)

type Server struct {
	workers int
}

func NewServer(workers int) *Server {
	return &Server{workers: workers}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/cost-volume", s.handleCostVolume)
	e.POST("/v1/depth-bias", s.handleDepthBias)
	e.POST("/v1/convert", s.handleConvert)
	e.GET("/healthz", handleHealth)
	e.GET("/metrics", handleMetrics)
}

func (s *Server) newStream() *device.Stream {
	opts := []device.Option{device.WithSyncAfterLaunch(true)}
	if s.workers > 0 {
		opts = append(opts, device.WithWorkers(s.workers))
	}
	return device.NewStream(opts...)
}

func (s *Server) handleCostVolume(c *echo.Context) error {
	req, err := decodeJSON[CostVolumeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "cost_volume", err.Error())
	}
	left, ok := req.Left.shape()
	if !ok {
		return writeBadRequest(c, "cost_volume", "left: shape and data disagree")
	}
	right, ok := req.Right.shape()
	if !ok {
		return writeBadRequest(c, "cost_volume", "right: shape and data disagree")
	}

	p := &plugin.CostVolume{MaxDisparity: req.MaxDisparity}
	out, err := p.OutputShape([]tensor.Shape{left, right})
	if err != nil {
		return writeBadRequest(c, "cost_volume", err.Error())
	}

	stream := s.newStream()
	defer stream.Destroy()

	dst := make([]float32, out.Elems())
	if err := p.Enqueue(stream, [][]float32{req.Left.Data, req.Right.Data}, dst, []tensor.Shape{left, right}); err != nil {
		return writeKernelError(c, "cost_volume", err)
	}
	metrics.RequestsTotal.WithLabelValues("cost_volume", "ok").Inc()
	return c.JSON(http.StatusOK, TensorResponse{
		ID:    newJobID(),
		Shape: out.Dims[:out.Rank],
		Data:  dst,
	})
}

func (s *Server) handleDepthBias(c *echo.Context) error {
	req, err := decodeJSON[DepthBiasRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "depth_bias", err.Error())
	}
	conv, ok := req.Activation.shape()
	if !ok {
		return writeBadRequest(c, "depth_bias", "activation: shape and data disagree")
	}
	biasShape := tensor.Shape5(len(req.Bias))

	p := &plugin.DepthBias{}
	out, err := p.OutputShape([]tensor.Shape{conv, biasShape})
	if err != nil {
		return writeBadRequest(c, "depth_bias", err.Error())
	}

	stream := s.newStream()
	defer stream.Destroy()

	dst := make([]float32, out.Elems())
	if err := p.Enqueue(stream, [][]float32{req.Activation.Data, req.Bias}, dst, []tensor.Shape{conv, biasShape}); err != nil {
		return writeKernelError(c, "depth_bias", err)
	}
	metrics.RequestsTotal.WithLabelValues("depth_bias", "ok").Inc()
	return c.JSON(http.StatusOK, TensorResponse{
		ID:    newJobID(),
		Shape: out.Dims[:out.Rank],
		Data:  dst,
	})
}

func (s *Server) handleConvert(c *echo.Context) error {
	req, err := decodeJSON[ConvertRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "convert", err.Error())
	}

	stream := s.newStream()
	defer stream.Destroy()

	switch req.Direction {
	case "float_to_half":
		dst := make([]uint16, len(req.Floats))
		if err := kernels.ConvertFloatToHalf(stream, req.Floats, dst); err != nil {
			return writeKernelError(c, "convert", err)
		}
		metrics.RequestsTotal.WithLabelValues("convert", "ok").Inc()
		return c.JSON(http.StatusOK, ConvertResponse{ID: newJobID(), HalfBits: dst})
	case "half_to_float":
		dst := make([]float32, len(req.HalfBits))
		if err := kernels.ConvertHalfToFloat(stream, req.HalfBits, dst); err != nil {
			return writeKernelError(c, "convert", err)
		}
		metrics.RequestsTotal.WithLabelValues("convert", "ok").Inc()
		return c.JSON(http.StatusOK, ConvertResponse{ID: newJobID(), Floats: dst})
	default:
		return writeBadRequest(c, "convert", fmt.Sprintf("unknown direction %q", req.Direction))
	}
}

func handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func handleMetrics(c *echo.Context) error {
	promhttp.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

func decodeJSON[T any](r io.Reader) (*T, error) {
	var v T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &v, nil
}

func writeBadRequest(c *echo.Context, op, msg string) error {
	metrics.RequestsTotal.WithLabelValues(op, "invalid").Inc()
	return c.JSON(http.StatusBadRequest, map[string]any{
		"error": APIError{Message: msg, Type: "invalid_request_error"},
	})
}

func writeKernelError(c *echo.Context, op string, err error) error {
	metrics.RequestsTotal.WithLabelValues(op, "error").Inc()
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"error": APIError{Message: err.Error(), Type: "kernel_error"},
	})
}

func newJobID() string {
	return "job_" + uuid.NewString()
}
