package ipc

import (
	"bufio"
	"io"
	"log"
	"net"
	"sync"
)

// Incoming couples a decoded request with the channel its response travels
// back on. The daemon loop answers exactly one response per Incoming.
type Incoming struct {
	Req   *Request
	Reply chan *Response
}

// Server accepts client connections on the claimed session socket and hands
// decoded requests to the daemon loop, one at a time per connection. A client
// that disconnects before the reply simply loses it.
type Server struct {
	listener net.Listener
	requests chan<- Incoming

	done         chan struct{}
	shutdownMu   sync.Mutex
	shuttingDown bool
}

// NewServer wraps an already-bound listener (see Claim).
func NewServer(listener net.Listener, requests chan<- Incoming) *Server {
	return &Server{
		listener: listener,
		requests: requests,
		done:     make(chan struct{}),
	}
}

// Start begins accepting IPC connections.
func (s *Server) Start() {
	log.Printf("IPC server listening on %s", s.listener.Addr())
	go s.acceptLoop()
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.send(conn, NewErrorResponse(ErrKindBadRequest, err.Error()))
		return
	}

	incoming := Incoming{Req: req, Reply: make(chan *Response, 1)}
	select {
	case s.requests <- incoming:
	case <-s.done:
		s.send(conn, NewErrorResponse(ErrKindConnection, "daemon is shutting down"))
		return
	}

	select {
	case resp := <-incoming.Reply:
		s.send(conn, resp)
	case <-s.done:
		s.send(conn, NewErrorResponse(ErrKindConnection, "daemon is shutting down"))
	}
}

func (s *Server) send(conn net.Conn, resp *Response) {
	data, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// Stop gracefully shuts down the IPC server and releases the socket.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	close(s.done)
	s.listener.Close()
}
