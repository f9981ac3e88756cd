package srm

import (
	"testing"

	"mynewt.apache.org/obexmgr/obexact/obex"
)

type hdrRecorder struct {
	srm  []uint8
	srmp []uint8
}

func (r *hdrRecorder) AppendSrm(val uint8) error {
	r.srm = append(r.srm, val)
	return nil
}

func (r *hdrRecorder) AppendSrmp(val uint8) error {
	r.srmp = append(r.srmp, val)
	return nil
}

func respond(s *Srm, srmVal uint8, srmpVal uint8, present bool) {
	s.ResetFields()
	if present {
		s.HandleHeader(obex.HDR_SRM, []byte{srmVal})
		s.HandleHeader(obex.HDR_SRMP, []byte{srmpVal})
	}
	s.HandleHeaders()
}

func TestSrmTransitions(t *testing.T) {
	cases := []struct {
		name    string
		srmVal  uint8
		srmpVal uint8
		present bool
		want    State
	}{
		{"confirmed", obex.SRM_ENABLE, obex.SRMP_NEXT, true, STATE_ENABLED},
		{"confirmed-wait", obex.SRM_ENABLE, obex.SRMP_WAIT, true,
			STATE_ENABLED_BUT_WAITING},
		{"refused", obex.SRM_DISABLE, obex.SRMP_NEXT, true, STATE_DISABLED},
		{"absent", 0, 0, false, STATE_DISABLED},
	}

	for _, c := range cases {
		s := NewSrm()
		r := &hdrRecorder{}
		if err := s.PrepareHeaders(r, true); err != nil {
			t.Fatalf("%s: prepare failed: %v", c.name, err)
		}
		if s.State() != STATE_WAITING_FOR_CONFIRM {
			t.Fatalf("%s: state=%s after request", c.name, s.State())
		}
		respond(s, c.srmVal, c.srmpVal, c.present)
		if s.State() != c.want {
			t.Fatalf("%s: state=%s, want %s", c.name, s.State(), c.want)
		}
	}
}

func TestSrmWaitThenRelease(t *testing.T) {
	s := NewSrm()
	s.PrepareHeaders(&hdrRecorder{}, true)
	respond(s, obex.SRM_ENABLE, obex.SRMP_WAIT, true)

	respond(s, obex.SRM_DISABLE, obex.SRMP_WAIT, true)
	if s.State() != STATE_ENABLED_BUT_WAITING {
		t.Fatalf("state=%s, want enabled-but-waiting", s.State())
	}

	respond(s, 0, 0, false)
	if s.State() != STATE_ENABLED || !s.IsActive() {
		t.Fatalf("state=%s active=%v", s.State(), s.IsActive())
	}
}

func TestSrmEnableSentOnce(t *testing.T) {
	s := NewSrm()
	r := &hdrRecorder{}

	s.PrepareHeaders(r, true)
	respond(s, obex.SRM_ENABLE, obex.SRMP_NEXT, true)
	for i := 0; i < 3; i++ {
		s.PrepareHeaders(r, true)
		respond(s, 0, 0, false)
	}

	if len(r.srm) != 1 || r.srm[0] != obex.SRM_ENABLE {
		t.Fatalf("srm headers sent: %v", r.srm)
	}
	if s.State() != STATE_ENABLED {
		t.Fatalf("state=%s", s.State())
	}
}

func TestSrmVersionGate(t *testing.T) {
	s := NewSrm()
	r := &hdrRecorder{}
	s.PrepareHeaders(r, false)

	if len(r.srm) != 0 || s.State() != STATE_DISABLED {
		t.Fatalf("srm requested on a GOEP 1.x bearer")
	}
}

func TestSrmLocalWaiting(t *testing.T) {
	s := NewSrm()
	r := &hdrRecorder{}

	s.PrepareHeaders(r, true)
	respond(s, obex.SRM_ENABLE, obex.SRMP_NEXT, true)

	s.SetWaiting(true)
	if s.IsActive() {
		t.Fatalf("active while locally waiting")
	}
	s.PrepareHeaders(r, true)
	s.PrepareHeaders(r, true)
	if len(r.srmp) != 2 || r.srmp[0] != obex.SRMP_WAIT {
		t.Fatalf("srmp headers sent: %v", r.srmp)
	}

	s.SetWaiting(false)
	if !s.IsActive() {
		t.Fatalf("not active after releasing wait")
	}
}
