package httpapi

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nanocl-project/nanocld/internal/errors"
	"github.com/nanocl-project/nanocld/internal/runtime"
)

// firstProcess returns the oldest Process row for kindKey — the container
// GET .../logs and POST .../exec target. Cargoes are rarely replicated in
// practice; when they are, the first replica is the representative one, the
// same choice the original daemon's CLI makes when no replica is named.
func (a *API) firstProcess(w http.ResponseWriter, r *http.Request, kindKey string) (string, bool) {
	procs, err := a.store.ListProcessesByKindKey(r.Context(), kindKey)
	if err != nil {
		writeError(w, err)
		return "", false
	}
	if len(procs) == 0 {
		writeError(w, errors.NotFound("Process", kindKey))
		return "", false
	}
	return procs[0].Key, true
}

// cargoLogs streams one container's log output as it arrives, matching the
// GET /cargoes/{name}/logs?tail&since&until&follow&timestamps&stdout&stderr
// surface. This is a unidirectional stream served directly over HTTP; only
// the interactive exec endpoint needs a websocket upgrade.
func (a *API) cargoLogs(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	processKey, ok := a.firstProcess(w, r, key)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := runtime.LogOptions{
		Tail:       q.Get("tail"),
		Since:      q.Get("since"),
		Until:      q.Get("until"),
		Follow:     q.Get("follow") == "true",
		Timestamps: q.Get("timestamps") == "true",
		Stdout:     q.Get("stdout") != "false",
		Stderr:     q.Get("stderr") != "false",
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if err := a.recon.StreamLogs(r.Context(), processKey, opts, flushWriter{w, flusher}); err != nil {
		a.log.WithError(err).Warn("cargo logs stream ended")
	}
}

// flushWriter flushes after every write so a log stream is delivered to the
// client as it is produced rather than buffered until close.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if fw.f != nil {
		fw.f.Flush()
	}
	return n, err
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type execRequest struct {
	Cmd []string `json:"Cmd"`
	Env []string `json:"Env"`
	Tty bool     `json:"Tty"`
}

type execResult struct {
	ExitCode int    `json:"ExitCode"`
	Error    string `json:"Error,omitempty"`
}

// cargoExec upgrades POST /cargoes/{name}/exec to a websocket: the client
// sends one JSON execRequest, the server streams raw command output as
// binary frames, then sends one final execResult text frame with the exit
// code before closing. This is the one bidirectional, interactive stream in
// the HTTP surface; every other endpoint is plain request/response or a
// unidirectional NDJSON/log stream.
func (a *API) cargoExec(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	processKey, ok := a.firstProcess(w, r, key)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var req execRequest
	if err := conn.ReadJSON(&req); err != nil {
		return
	}

	pr, pw := io.Pipe()
	done := make(chan execResult, 1)
	go func() {
		exitCode, err := a.recon.Exec(r.Context(), processKey, runtime.ExecOptions{
			Cmd: req.Cmd, Env: req.Env, Tty: req.Tty, Stdout: pw, Stderr: pw,
		})
		pw.Close()
		res := execResult{ExitCode: exitCode}
		if err != nil {
			res.Error = err.Error()
		}
		done <- res
	}()

	buf := make([]byte, 4096)
	for {
		n, err := pr.Read(buf)
		if n > 0 {
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				break
			}
		}
		if err != nil {
			break
		}
	}

	res := <-done
	_ = conn.WriteJSON(res)
}
