package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"i4.energy/across/ctdlink/ctd"
	"i4.energy/across/ctdlink/monitor"
	"i4.energy/across/ctdlink/publish"
)

// Server handles incoming HTTP requests for interacting with the
// configured CTD driver. Driver operations are serialized.
type Server struct {
	Logger    *slog.Logger
	Driver    *ctd.Driver
	Metrics   *monitor.Metrics
	Publisher publish.Publisher
	// Instrument is the CTD serial number stamped on published records. It
	// is updated whenever the CTD reports its serial number.
	Instrument int

	mu sync.Mutex
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sample/{kind}", s.handleSample)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /oxygen/status", s.handleOxygenStatus)
	mux.HandleFunc("POST /config", s.handleConfigure)
	mux.HandleFunc("POST /oxygen/config", s.handleConfigureOxygen)
	mux.HandleFunc("GET /firmware", s.handleFirmware)
	mux.HandleFunc("GET /serial", s.handleSerialNumber)
	mux.HandleFunc("POST /calibration/log", s.handleCalibration)
	mux.HandleFunc("GET /pumptime", s.handlePumpTime)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	s.sendJSON(w, resp, statusCode)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("Failed to write response", "error", err)
	}
}

// OperationResponse is the body of every driver operation endpoint.
type OperationResponse struct {
	Op     string `json:"op"`
	Result string `json:"result"`
	Code   int    `json:"code"`
	Data   any    `json:"data,omitempty"`
}

// statusCode maps a driver result to an HTTP status. Replies that failed
// strict validation still carry data and are delivered with 200.
func statusCode(r ctd.Result) int {
	switch {
	case r.Replied():
		return http.StatusOK
	case r == ctd.NullArgument:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// run executes op under the driver lock, records metrics and publishes the
// outcome under kind. An empty kind skips publishing.
func (s *Server) run(ctx context.Context, w http.ResponseWriter, name, kind string, op func(context.Context) (any, ctd.Result)) {
	s.mu.Lock()
	var done func(ctd.Result)
	if s.Metrics != nil {
		done = s.Metrics.Track(name)
	}
	data, result := op(ctx)
	if done != nil {
		done(result)
	}
	instrument := s.Instrument
	s.mu.Unlock()

	log := s.Logger.With("op", name, "result", result.String())
	if result.OK() {
		log.Info("Operation completed")
	} else {
		log.Warn("Operation failed", "error", result.Err())
	}

	if kind != "" && s.Publisher != nil {
		rec := publish.NewRecord(instrument, kind, name, result, data)
		if err := s.Publisher.Publish(context.WithoutCancel(ctx), rec); err != nil {
			log.Error("Failed to publish record", "error", err)
		}
	}

	s.sendJSON(w, OperationResponse{
		Op:     name,
		Result: result.String(),
		Code:   int(result),
		Data:   data,
	}, statusCode(result))
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	var (
		name string
		take func(context.Context) (ctd.Sample, ctd.Result)
	)
	switch r.PathValue("kind") {
	case "p":
		name, take = "GetP", s.Driver.GetP
	case "pt":
		name, take = "GetPT", s.Driver.GetPT
	case "pts":
		name, take = "GetPTS", s.Driver.GetPTS
	case "ptso":
		name, take = "GetPTSO", s.Driver.GetPTSO
	default:
		s.sendError(w, "sample kind must be one of p, pt, pts, ptso", http.StatusNotFound)
		return
	}

	s.run(r.Context(), w, name, publish.KindSample, func(ctx context.Context) (any, ctd.Result) {
		sample, result := take(ctx)
		if result.Replied() && s.Metrics != nil {
			s.Metrics.RecordSample(sample)
		}
		return sample, result
	})
}

// handleStatus wakes the CTD, reads its configuration and puts it back to
// sleep.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.run(r.Context(), w, "Status", publish.KindStatus, func(ctx context.Context) (any, ctd.Result) {
		serial, result := s.Driver.EnterCommandMode(ctx)
		defer s.Driver.PowerDown(ctx)
		if result != ctd.Success {
			return nil, result
		}
		s.Instrument = serial

		return s.Driver.Status(ctx, ctd.StatusAll)
	})
}

func (s *Server) handleOxygenStatus(w http.ResponseWriter, r *http.Request) {
	s.run(r.Context(), w, "OxygenStatus", publish.KindOxygenStatus, func(ctx context.Context) (any, ctd.Result) {
		serial, result := s.Driver.EnterCommandMode(ctx)
		defer s.Driver.PowerDown(ctx)
		if result != ctd.Success {
			return nil, result
		}
		s.Instrument = serial

		return s.Driver.OxygenStatus(ctx, ctd.OxygenAll)
	})
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	type ConfigureRequest struct {
		PTPump bool `json:"pt_pump"`
	}

	var req ConfigureRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	s.run(r.Context(), w, "Configure", publish.KindConfigure, func(ctx context.Context) (any, ctd.Result) {
		return map[string]bool{"pt_pump": req.PTPump}, s.Driver.Configure(ctx, req.PTPump)
	})
}

func (s *Server) handleConfigureOxygen(w http.ResponseWriter, r *http.Request) {
	s.run(r.Context(), w, "ConfigureOxygen", publish.KindConfigure, func(ctx context.Context) (any, ctd.Result) {
		serial, result := s.Driver.ConfigureOxygen(ctx)
		return map[string]ctd.Maybe[int]{"oxygen_serial_number": serial}, result
	})
}

func (s *Server) handleFirmware(w http.ResponseWriter, r *http.Request) {
	s.run(r.Context(), w, "FirmwareRevision", "", func(ctx context.Context) (any, ctd.Result) {
		rev, result := s.Driver.FirmwareRevision(ctx)
		if result != ctd.Success {
			return nil, result
		}
		return map[string]string{"firmware": rev}, result
	})
}

func (s *Server) handleSerialNumber(w http.ResponseWriter, r *http.Request) {
	s.run(r.Context(), w, "SerialNumber", "", func(ctx context.Context) (any, ctd.Result) {
		serial, result := s.Driver.SerialNumber(ctx)
		if result != ctd.Success {
			return nil, result
		}
		s.Instrument = serial
		return map[string]int{"serial_number": serial}, result
	})
}

func (s *Server) handleCalibration(w http.ResponseWriter, r *http.Request) {
	s.run(r.Context(), w, "LogCalibration", "", func(ctx context.Context) (any, ctd.Result) {
		lines, result := s.Driver.LogCalibration(ctx)
		for _, line := range lines {
			s.Logger.Info("Calibration", "line", line)
		}
		return lines, result
	})
}

// defaultTimeConstants is the number of SBE43 time constants the pump
// period covers unless the request sets n.
const defaultTimeConstants = 3

// handlePumpTime computes the SBE43 pump period for the pressure p,
// temperature t and oxygen time constant tau1p given as query parameters.
func (s *Server) handlePumpTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := make(map[string]float64, 3)
	for _, name := range []string{"p", "t", "tau1p"} {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			s.sendError(w, "query parameter '"+name+"' must be a number", http.StatusBadRequest)
			return
		}
		params[name] = v
	}
	n := defaultTimeConstants
	if raw := q.Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.sendError(w, "query parameter 'n' must be an integer", http.StatusBadRequest)
			return
		}
		n = v
	}

	d := ctd.PumpTime(params["p"], params["t"], params["tau1p"], n)
	s.sendJSON(w, map[string]float64{"seconds": d.Seconds()}, http.StatusOK)
}
