package capture

import (
	"sync/atomic"
	"time"

	"github.com/brensch/kickoff/transport"
)

// Tap is a transport that copies every datagram it carries to a Recorder.
// Capture failures never affect the wrapped transport; they surface when
// the recorder is closed.
type Tap struct {
	transport.Transport
	rec     *Recorder
	session string
	seq     atomic.Int64
}

func NewTap(t transport.Transport, rec *Recorder, session string) *Tap {
	return &Tap{Transport: t, rec: rec, session: session}
}

func (t *Tap) record(dir string, b []byte) {
	payload := make([]byte, len(b))
	copy(payload, b)
	_ = t.rec.Write(Record{
		Session:    t.session,
		Seq:        t.seq.Add(1),
		AtUnixNano: time.Now().UnixNano(),
		Direction:  dir,
		Peer:       t.Peer(),
		Payload:    payload,
	})
}

func (t *Tap) Send(b []byte) error {
	if err := t.Transport.Send(b); err != nil {
		return err
	}
	t.record(Out, b)
	return nil
}

func (t *Tap) Recv() ([]byte, error) {
	b, err := t.Transport.Recv()
	if err != nil {
		return nil, err
	}
	t.record(In, b)
	return b, nil
}
