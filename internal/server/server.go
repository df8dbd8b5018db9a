// Package server implements the line-oriented TCP protocol front end,
// grounded on original_source/src/network/server.rs and client.rs: one
// handler per accepted connection, reading newline-terminated messages
// and dispatching each to the registry.
//
// The original spawns an unbounded tokio task per connection. spec.md §5
// asks for a bounded worker pool instead, so connection handling here
// runs through a panjf2000/ants/v2 pool sized by configuration: once
// every worker is busy, Accept keeps pulling connections off the socket
// backlog but handing them to the pool blocks until a slot frees,
// giving the server real backpressure instead of unbounded goroutine
// growth.
package server

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/keaz/qtable/internal/database"
	"github.com/keaz/qtable/internal/parser"
	"github.com/keaz/qtable/internal/qerrors"
	"github.com/keaz/qtable/internal/registry"
	"github.com/panjf2000/ants/v2"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const responseHeaderSize = 4

// Server accepts client connections and dispatches their commands
// against a registry.Registry.
type Server struct {
	log  *zap.Logger
	reg  *registry.Registry
	pool *ants.Pool
	port int
}

// New builds a Server with a bounded connection-handling pool of the
// given size (spec.md §5's worker count).
func New(reg *registry.Registry, port, workers int, log *zap.Logger) (*Server, error) {
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &Server{
		log:  log.Named("server"),
		reg:  reg,
		pool: pool,
		port: port,
	}, nil
}

// Run listens on 0.0.0.0:<port> and accepts connections until the
// listener is closed or accept fails, mirroring Server::run's loop.
func (s *Server) Run() error {
	defer s.pool.Release()
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(s.port))
	if err != nil {
		return err
	}
	defer listener.Close()
	s.log.Info("listening", zap.Int("port", s.port))

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.log.Error("accept failed", zap.Error(err))
			return err
		}
		s.log.Debug("new connection", zap.String("remote", conn.RemoteAddr().String()))
		if err := s.pool.Submit(func() { s.handle(conn) }); err != nil {
			s.log.Error("could not schedule connection", zap.Error(err))
			conn.Close()
		}
	}
}

// handle reads newline-terminated messages from conn and dispatches
// each one, following client.rs's Client::listen loop: a leading
// "CREATE" keyword is special-cased, everything else is split on the
// first ':' into a database name and a command string.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadString('\n')
		message := strings.TrimSpace(line)
		if message != "" {
			s.dispatch(conn, message)
		}
		if err != nil {
			if err != io.EOF {
				s.log.Debug("connection read error", zap.Error(err))
			}
			break
		}
	}
	s.log.Debug("connection closed", zap.String("remote", conn.RemoteAddr().String()))
}

func (s *Server) dispatch(conn net.Conn, message string) {
	if strings.HasPrefix(message, "CREATE") {
		s.handleCreate(conn, message)
		return
	}

	idx := strings.IndexByte(message, ':')
	if idx < 0 {
		s.writeError(conn, "invalid message format, expected 'database: command'")
		return
	}
	db := strings.TrimSpace(message[:idx])
	command := strings.TrimSpace(message[idx+1:])

	cmd, err := parser.Parse(db, command)
	if err != nil {
		s.writeError(conn, "error parsing message: "+err.Error())
		return
	}
	if cmd.Kind == parser.CmdCreate {
		s.writeError(conn, "unexpected create command")
		return
	}

	resp := s.reg.Handle(db, cmd)
	s.writeResponse(conn, resp)
}

func (s *Server) handleCreate(conn net.Conn, message string) {
	cmd, err := parser.Parse("", message)
	if err != nil {
		s.writeError(conn, "error parsing create command: "+err.Error())
		return
	}
	if err := s.reg.Create(cmd.Database); err != nil {
		if errors.Is(err, qerrors.ErrDatabaseExists) {
			s.writeError(conn, "database already exists")
			return
		}
		s.writeError(conn, "failed to create database: "+err.Error())
		return
	}
	s.writeResponse(conn, database.Response{})
}

func (s *Server) writeError(conn net.Conn, message string) {
	s.writeResponse(conn, database.Response{Error: message})
}

// writeResponse msgpack-encodes resp and writes it length-prefixed, so
// a client reading a TCP byte stream can tell where one response ends
// and the next begins — the original writes bare serialize() bytes
// straight to the socket per message, which only works because its
// client reads and discards the whole buffer per iteration; framing
// the response removes that assumption.
func (s *Server) writeResponse(conn net.Conn, resp database.Response) {
	body, err := msgpack.Marshal(resp)
	if err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
		return
	}
	header := make([]byte, responseHeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(body)))
	if _, err := conn.Write(append(header, body...)); err != nil {
		s.log.Debug("failed to write response", zap.Error(err))
	}
}
