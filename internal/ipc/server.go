package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/re-cinq/fleetd/internal/config"
	"github.com/re-cinq/fleetd/internal/engine"
	"github.com/re-cinq/fleetd/internal/fileutil"
	"github.com/re-cinq/fleetd/internal/idgen"
	"github.com/re-cinq/fleetd/internal/logging"
	"github.com/re-cinq/fleetd/internal/registry"
	"github.com/re-cinq/fleetd/internal/scm"
)

// Server accepts one connection per client request on the fleetd Unix
// socket.
type Server struct {
	Registry *registry.Registry
}

// ListenAndServe removes a stale socket file (if any) and accepts
// connections until ctx is cancelled, handling each on its own goroutine.
func ListenAndServe(ctx context.Context, reg *registry.Registry) error {
	path := fileutil.SocketPath()
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("binding socket %s: %w", path, err)
	}
	defer ln.Close()

	srv := &Server{Registry: reg}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accepting connection: %w", err)
			}
		}
		go srv.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}

	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		sendResponse(conn, Response{Type: RespError, Error: fmt.Sprintf("bad request: %s", err)})
		return
	}

	resp := s.handleRequest(ctx, req)
	if resp.Type == RespNone {
		return
	}
	sendResponse(conn, resp)
}

func sendResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = conn.Write(data)
}

func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	switch req.Action {
	case ActionAddWatch:
		return s.handleAddWatch(req)
	case ActionRunPipeline:
		go s.handleRunPipeline(ctx, req.ID)
		return Response{Type: RespIgnore}
	case ActionStopWatch:
		if err := s.Registry.SetPaused(req.ID, true); err != nil {
			return Response{Type: RespError, Error: err.Error()}
		}
		return Response{Type: RespSuccess, Message: fmt.Sprintf("watch %s stopped", req.ID)}
	case ActionUpWatch:
		if err := s.Registry.SetPaused(req.ID, false); err != nil {
			return Response{Type: RespError, Error: err.Error()}
		}
		return Response{Type: RespSuccess, Message: fmt.Sprintf("watch %s resumed", req.ID)}
	case ActionRmWatch:
		if err := s.Registry.Remove(req.ID); err != nil {
			return Response{Type: RespError, Error: err.Error()}
		}
		return Response{Type: RespSuccess, Message: fmt.Sprintf("watch %s removed", req.ID)}
	case ActionListWatches:
		return s.handleListWatches(req.All)
	case ActionLogsWatches:
		return s.handleLogsWatches(req.ID, req.Follow)
	default:
		return Response{Type: RespError, Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
}

func (s *Server) handleAddWatch(req Request) Response {
	id, err := idgen.New()
	if err != nil {
		return Response{Type: RespError, Error: err.Error()}
	}

	repoPath, err := scm.ExtractRepoPath(req.RemoteURL)
	repoName := repoPath
	if err != nil {
		repoName = req.ProjectDir
	}

	branches := req.Branches
	if len(branches) == 1 && branches[0] == "*" {
		// Wildcard is resolved once, here, at AddWatch time — never
		// re-enumerated afterward.
		all, err := scm.NewRemote(req.RemoteURL).Branches()
		if err != nil {
			return Response{Type: RespError, Error: fmt.Sprintf("resolving wildcard branches: %s", err)}
		}
		branches = all
	}

	w, err := s.Registry.AddOrUpdate(id, req.ProjectDir, repoName, req.RemoteURL, branches)
	if err != nil {
		return Response{Type: RespError, Error: err.Error()}
	}
	return Response{Type: RespSuccess, Message: fmt.Sprintf("registered watch %s (%s)", w.ID, w.RepoName)}
}

// handleRunPipeline runs once against the current snapshot and streams
// progress into the watch's log file; the caller already received an
// immediate Ignore ack (see handleRequest).
func (s *Server) handleRunPipeline(ctx context.Context, idOrName string) {
	w, ok := s.Registry.Get(idOrName)
	if !ok {
		return
	}

	log, err := logging.New(w.ID)
	if err != nil {
		return
	}
	defer log.Close()

	cfg, err := config.Load(w.ProjectDir + "/fleet.yml")
	if err != nil {
		log.Error(fmt.Sprintf("loading config: %s", err))
		return
	}
	if err := config.ResolveEnv(cfg); err != nil {
		log.Error(fmt.Sprintf("resolving env: %s", err))
		return
	}

	rc := &engine.RunContext{ProjectID: w.ID, ProjectName: w.RepoName, Dir: w.ProjectDir, Config: cfg, Log: log}
	_, _ = engine.RunPipeline(ctx, rc)
}

func (s *Server) handleListWatches(all bool) Response {
	var out []WatchInfo
	for _, w := range s.Registry.List(all) {
		branch := ""
		if len(w.Branches) > 0 {
			branch = w.Branches[0]
		}
		out = append(out, WatchInfo{
			Branch:      branch,
			ProjectDir:  w.ProjectDir,
			ShortCommit: idgen.ShortCommit(w.LastCommit[branch]),
			ShortURL:    w.RepoName,
			ShortBranch: idgen.ShortBranch(branch),
			RepoName:    w.RepoName,
			ID:          w.ID,
			Paused:      w.Paused,
		})
	}
	return Response{Type: RespListWatches, Watches: out}
}

func (s *Server) handleLogsWatches(idOrName string, follow bool) Response {
	w, ok := s.Registry.Get(idOrName)
	if !ok {
		return Response{Type: RespError, Error: fmt.Sprintf("no watch matching %q", idOrName)}
	}
	return Response{Type: RespLogWatch, LogPath: fileutil.LogPath(w.ID), Follow: follow}
}
