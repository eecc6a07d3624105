package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkeller/modelharness/internal/errors"
)

// ReadySignal is what an environment process posts to the control server once
// its engine endpoint is accepting dispatches.
type ReadySignal struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
}

// ControlServer collects readiness signals from launched environment
// processes. One server serves a whole run.
type ControlServer struct {
	ln  net.Listener
	srv *http.Server

	mu    sync.Mutex
	ready map[string]string // environment name -> engine endpoint
	waits map[string][]chan string
}

func NewControlServer() (*ControlServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, errors.Internal("failed to bind control listener", err)
	}

	cs := &ControlServer{
		ln:    ln,
		ready: make(map[string]string),
		waits: make(map[string][]chan string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ready", cs.handleReady)
	cs.srv = &http.Server{Handler: mux}

	go func() {
		if err := cs.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("control server stopped: %v", err)
		}
	}()

	return cs, nil
}

func (cs *ControlServer) URL() string {
	return fmt.Sprintf("http://%s", cs.ln.Addr().String())
}

func (cs *ControlServer) Close() error {
	return cs.srv.Close()
}

func (cs *ControlServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var signal ReadySignal
	if err := json.NewDecoder(r.Body).Decode(&signal); err != nil || signal.Name == "" || signal.Endpoint == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	log.Debug("environment %s ready at %s", signal.Name, signal.Endpoint)

	cs.mu.Lock()
	cs.ready[signal.Name] = signal.Endpoint
	for _, ch := range cs.waits[signal.Name] {
		ch <- signal.Endpoint
	}
	delete(cs.waits, signal.Name)
	cs.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

// AwaitReady blocks until the named environment signals readiness or the
// timeout elapses.
func (cs *ControlServer) AwaitReady(name string, timeout time.Duration) (string, error) {
	cs.mu.Lock()
	if endpoint, ok := cs.ready[name]; ok {
		cs.mu.Unlock()
		return endpoint, nil
	}
	ch := make(chan string, 1)
	cs.waits[name] = append(cs.waits[name], ch)
	cs.mu.Unlock()

	select {
	case endpoint := <-ch:
		return endpoint, nil
	case <-time.After(timeout):
		return "", errors.EnvironmentNotReady(name, timeout.String())
	}
}

// SignalReady is the client half: environment processes call it to announce
// their engine endpoint.
func SignalReady(controlURL, name, endpoint string) error {
	body, err := json.Marshal(ReadySignal{Name: name, Endpoint: endpoint})
	if err != nil {
		return errors.Internal("failed to marshal ready signal", err)
	}

	resp, err := http.Post(controlURL+"/ready", "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.CategoryEnvironment, "SIGNAL_FAILED", "failed to reach control server", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.CategoryEnvironment, "SIGNAL_FAILED",
			fmt.Sprintf("control server rejected ready signal with status %d", resp.StatusCode))
	}
	return nil
}
