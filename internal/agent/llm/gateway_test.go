package llm

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type scriptedStream struct {
	frags   []string
	failAt  int // fail before yielding frags[failAt]; -1 disables
	i       int
	closed  bool
	failErr error
}

func (s *scriptedStream) Recv() (string, error) {
	if s.failAt >= 0 && s.i == s.failAt {
		return "", s.failErr
	}
	if s.i >= len(s.frags) {
		return "", io.EOF
	}
	frag := s.frags[s.i]
	s.i++
	return frag, nil
}

func (s *scriptedStream) Close() { s.closed = true }

type scriptedGateway struct {
	invokeText  string
	invokeErr   error
	invokeCalls int
	stream      *scriptedStream
	streamErr   error
}

func (g *scriptedGateway) Invoke(ctx context.Context, prompt string) (string, error) {
	g.invokeCalls++
	return g.invokeText, g.invokeErr
}

func (g *scriptedGateway) Stream(ctx context.Context, prompt string) (TextStream, error) {
	if g.streamErr != nil {
		return nil, g.streamErr
	}
	return g.stream, nil
}

func TestCompleteStreamsFragments(t *testing.T) {
	stream := &scriptedStream{frags: []string{"The answer", " is", " 42."}, failAt: -1}
	g := &scriptedGateway{stream: stream, invokeText: "unused"}

	out, err := Complete(context.Background(), g, "question")
	require.NoError(t, err)
	require.Equal(t, "The answer is 42.", out)
	require.Zero(t, g.invokeCalls, "streaming success must not fall back")
	require.True(t, stream.closed)
}

func TestCompleteFallsBackWhenStreamUnavailable(t *testing.T) {
	g := &scriptedGateway{streamErr: errors.New("stream not supported"), invokeText: "blocking answer"}

	out, err := Complete(context.Background(), g, "question")
	require.NoError(t, err)
	require.Equal(t, "blocking answer", out)
	require.Equal(t, 1, g.invokeCalls)
}

func TestCompleteFallsBackMidStream(t *testing.T) {
	stream := &scriptedStream{
		frags:   []string{"partial ", "response"},
		failAt:  1,
		failErr: errors.New("connection reset"),
	}
	g := &scriptedGateway{stream: stream, invokeText: "full blocking answer"}

	out, err := Complete(context.Background(), g, "question")
	require.NoError(t, err)
	// Streams are not restartable, so the partial prefix is discarded and
	// the blocking call supplies the whole response.
	require.Equal(t, "full blocking answer", out)
	require.Equal(t, 1, g.invokeCalls)
	require.True(t, stream.closed)
}

func TestCompleteSurfacesBlockingError(t *testing.T) {
	g := &scriptedGateway{
		streamErr: errors.New("stream not supported"),
		invokeErr: errors.New("backend unreachable"),
	}

	_, err := Complete(context.Background(), g, "question")
	require.Error(t, err)
}
