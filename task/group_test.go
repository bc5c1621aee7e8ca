package task

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGroupCancelsOnFirstError(t *testing.T) {
	var g = NewGroup(context.Background())

	g.Queue("waits", func() error {
		<-g.Context().Done()
		return nil
	})
	g.Queue("fails", func() error { return errors.New("whoops") })

	g.GoRun()
	require.EqualError(t, g.Wait(), "fails: whoops")
	require.Error(t, g.Context().Err())

	require.Panics(t, func() { g.GoRun() })
	require.Panics(t, func() { g.Queue("late", nil) })
}

func TestGroupCancel(t *testing.T) {
	var g = NewGroup(context.Background())
	require.Panics(t, func() { _ = g.Wait() })

	g.Queue("waits", func() error {
		<-g.Context().Done()
		return nil
	})
	g.GoRun()
	g.Cancel()

	require.NoError(t, g.Wait())
}

func TestQueueServeShutsDownOnCancel(t *testing.T) {
	var ln, err = net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var srv = &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "hallo")
	})}

	var g = NewGroup(context.Background())
	g.QueueServe("server", srv, ln, time.Second)
	g.GoRun()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "hallo", string(body))

	g.Cancel()
	require.NoError(t, g.Wait())

	_, err = http.Get("http://" + ln.Addr().String() + "/")
	require.Error(t, err)
}
