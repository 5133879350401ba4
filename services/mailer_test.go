package services

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskplanner/config"
)

// fakeSMTP accepts one message per connection and hands its DATA back.
type fakeSMTP struct {
	ln   net.Listener
	msgs chan string
	rcpt chan string
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeSMTP{ln: ln, msgs: make(chan string, 4), rcpt: make(chan string, 4)}
	t.Cleanup(func() { ln.Close() })
	go s.serve()
	return s
}

func (s *fakeSMTP) port() string {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	return port
}

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	tp.PrintfLine("220 localhost ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			tp.PrintfLine("250 localhost")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			tp.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO"):
			s.rcpt <- line
			tp.PrintfLine("250 OK")
		case cmd == "DATA":
			tp.PrintfLine("354 go ahead")
			data, err := io.ReadAll(tp.DotReader())
			if err != nil {
				return
			}
			s.msgs <- string(data)
			tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			tp.PrintfLine("221 bye")
			return
		default:
			tp.PrintfLine("502 not implemented")
		}
	}
}

func TestSMTPMailerDeliversHTML(t *testing.T) {
	srv := startFakeSMTP(t)
	m := NewSMTPMailer(config.SMTPConfig{
		Host: "127.0.0.1", Port: srv.port(), From: "Planner <noreply@example.com>", Timeout: 5 * time.Second,
	})

	res := m.Send(context.Background(), "anong@example.com", "[Myday-Planner] 1 overdue, 0 due soon", "<p>Submit report</p>")
	require.NoError(t, res.Error)
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.MessageID, "<"))

	select {
	case rcpt := <-srv.rcpt:
		assert.Contains(t, rcpt, "anong@example.com")
	case <-time.After(5 * time.Second):
		t.Fatal("no RCPT received")
	}

	var raw string
	select {
	case raw = <-srv.msgs:
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}

	r, err := mail.CreateReader(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	subject, err := r.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "[Myday-Planner] 1 overdue, 0 due soon", subject)
	id, err := r.Header.MessageID()
	require.NoError(t, err)
	assert.Equal(t, res.MessageID, "<"+id+">")

	p, err := r.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(p.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<p>Submit report</p>")
}

func TestSMTPMailerReportsFailures(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()

	m := NewSMTPMailer(config.SMTPConfig{Host: "127.0.0.1", Port: port, From: "noreply@example.com", Timeout: time.Second})
	res := m.Send(context.Background(), "anong@example.com", "s", "b")
	assert.False(t, res.Success)
	assert.Error(t, res.Error)

	res = m.Send(context.Background(), "not an address", "s", "b")
	assert.False(t, res.Success)
	assert.Error(t, res.Error)
}

func TestComposeSetsHTMLContentType(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{From: "noreply@example.com"})
	m.now = func() time.Time { return time.Date(2024, 1, 18, 8, 0, 0, 0, time.UTC) }

	raw, _, err := m.compose("anong@example.com", "hello", "<b>hi</b>")
	require.NoError(t, err)

	r, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	ct, params, err := r.Header.ContentType()
	require.NoError(t, err)
	assert.Equal(t, "text/html", ct)
	assert.Equal(t, "utf-8", params["charset"])

	date, err := r.Header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(m.now()))
}
