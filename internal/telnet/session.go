// Package telnet implements the single request exchange hdmi-switch has
// with the matrix: connect, read the greeting, write one command line.
//
// The switch speaks plain Telnet on port 23. The client negotiates
// nothing: every option the server offers with DO or WILL is refused with
// WONT or DONT, which leaves the connection in the default NVT mode.
package telnet

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/shinji-kodama/hdmi-switch/internal/model"
)

// Telnet command bytes (RFC 854).
const (
	cmdSE   byte = 240
	cmdSB   byte = 250
	cmdWILL byte = 251
	cmdWONT byte = 252
	cmdDO   byte = 253
	cmdDONT byte = 254
	cmdIAC  byte = 255
)

// greetingBufferSize is the size of the single greeting read.
const greetingBufferSize = 256

// Session is an open Telnet connection to the switch.
type Session struct {
	conn    net.Conn
	timeout time.Duration
	logger  *zap.Logger
}

// Dial connects to address (host:port) within timeout.
//
// Returns a model.CLIError with ExitSwitchUnreachable if the connection
// cannot be established. A nil logger disables logging.
func Dial(ctx context.Context, address string, timeout time.Duration, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitSwitchUnreachable,
			fmt.Sprintf("failed to connect to switch at %s", address), err)
	}
	logger.Debug("connected to switch",
		zap.String("address", address),
		zap.String("local", conn.LocalAddr().String()))

	return &Session{conn: conn, timeout: timeout, logger: logger}, nil
}

// ReadGreeting performs one read from the connection and returns the data
// bytes of that event with Telnet commands removed. Option requests found
// in the event are refused before returning.
func (s *Session) ReadGreeting() ([]byte, error) {
	if err := s.conn.SetReadDeadline(s.deadline()); err != nil {
		return nil, s.ioError("failed to set read deadline", err)
	}

	buf := make([]byte, greetingBufferSize)
	n, err := s.conn.Read(buf)
	if err != nil {
		return nil, s.ioError("failed to read greeting from switch", err)
	}

	data, replies := parseEvent(buf[:n])
	if len(replies) > 0 {
		s.logger.Debug("refusing telnet options", zap.Int("bytes", len(replies)))
		if err := s.write(replies); err != nil {
			return nil, s.ioError("failed to answer option negotiation", err)
		}
	}

	s.logger.Debug("greeting received", zap.ByteString("data", bytes.TrimSpace(data)))
	return data, nil
}

// Send writes command to the switch. IAC bytes in the payload are doubled
// so they are sent as data.
func (s *Session) Send(command string) error {
	payload := bytes.ReplaceAll([]byte(command), []byte{cmdIAC}, []byte{cmdIAC, cmdIAC})
	if err := s.write(payload); err != nil {
		return s.ioError("failed to send command to switch", err)
	}
	s.logger.Debug("command sent", zap.Int("bytes", len(payload)))
	return nil
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) write(p []byte) error {
	if err := s.conn.SetWriteDeadline(s.deadline()); err != nil {
		return err
	}
	_, err := s.conn.Write(p)
	return err
}

// deadline returns the I/O deadline for the next operation. A zero
// timeout means no deadline.
func (s *Session) deadline() time.Time {
	if s.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.timeout)
}

func (s *Session) ioError(message string, err error) error {
	return model.WrapCLIError(model.ExitSwitchUnreachable, message, err)
}

// parseEvent splits a raw read into data bytes and the refusals to send
// back for any option requests it contains. Subnegotiations are skipped.
// A command truncated at the end of the buffer is dropped.
func parseEvent(raw []byte) (data, replies []byte) {
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b != cmdIAC {
			data = append(data, b)
			continue
		}
		if i+1 >= len(raw) {
			break
		}
		i++
		switch cmd := raw[i]; cmd {
		case cmdIAC:
			data = append(data, cmdIAC)
		case cmdDO, cmdDONT, cmdWILL, cmdWONT:
			if i+1 >= len(raw) {
				return data, replies
			}
			i++
			opt := raw[i]
			switch cmd {
			case cmdDO:
				replies = append(replies, cmdIAC, cmdWONT, opt)
			case cmdWILL:
				replies = append(replies, cmdIAC, cmdDONT, opt)
			}
		case cmdSB:
			end := bytes.Index(raw[i:], []byte{cmdIAC, cmdSE})
			if end < 0 {
				return data, replies
			}
			i += end + 1
		default:
			// NOP, GA and the other two-byte commands carry no payload.
		}
	}
	return data, replies
}
