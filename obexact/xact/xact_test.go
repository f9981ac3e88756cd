package xact_test

import (
	"bytes"
	"testing"
	"time"

	"mynewt.apache.org/obexmgr/obexact/bearer"
	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/goep/goeptest"
	"mynewt.apache.org/obexmgr/obexact/mas"
	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
	"mynewt.apache.org/obexmgr/obexact/opp"
	"mynewt.apache.org/obexmgr/obexact/pbap"
	"mynewt.apache.org/obexmgr/obexact/profile"
	"mynewt.apache.org/obexmgr/obexact/sesn"
	"mynewt.apache.org/obexmgr/obexact/xact"
)

func openSesn(t *testing.T, p *goeptest.Peer, build sesn.ClientBuilder) *sesn.Sesn {
	cfg := sesn.NewSesnCfg()
	cfg.Peer = "00:1B:DC:07:32:F1"
	cfg.Record = goep.ServiceRecord{RfcommChannel: 4}
	cfg.ConnTimeout = 2 * time.Second
	cfg.CloseTimeout = time.Second
	cfg.BuildBearer = func(sink goep.Sink) goep.Bearer {
		return bearer.NewConnBearer(bearer.ConnBearerCfg{
			Name: "pipe",
			Mtu:  256,
			Sink: sink,
			Dial: p.Dial,
		})
	}
	cfg.BuildClient = build

	s, err := sesn.NewSesn(cfg)
	if err != nil {
		t.Fatalf("NewSesn failed: %s", err.Error())
	}

	cmd := xact.NewConnectCmd()
	if _, err := cmd.Run(s); err != nil {
		t.Fatalf("connect failed: %s", err.Error())
	}
	return s
}

func oppSesn(t *testing.T, p *goeptest.Peer) *sesn.Sesn {
	return openSesn(t, p, func(gs *goep.Session, h profile.Handler) sesn.Client {
		return opp.NewClient(gs, h)
	})
}

func pbapSesn(t *testing.T, p *goeptest.Peer) *sesn.Sesn {
	return openSesn(t, p, func(gs *goep.Session, h profile.Handler) sesn.Client {
		return pbap.NewClient(gs, h)
	})
}

func masSesn(t *testing.T, p *goeptest.Peer) *sesn.Sesn {
	return openSesn(t, p, func(gs *goep.Session, h profile.Handler) sesn.Client {
		return mas.NewClient(gs, 0, h)
	})
}

func shortTimeout() sesn.TxOptions {
	opt := sesn.NewTxOptions()
	opt.Timeout = 2 * time.Second
	return opt
}

// Concatenates the body headers of every request.
func bodies(reqs [][]byte) []byte {
	var b []byte
	for _, req := range reqs {
		if body, ok := goeptest.FindHeader(req, obex.HDR_BODY); ok {
			b = append(b, body...)
		}
		if body, ok := goeptest.FindHeader(req, obex.HDR_END_OF_BODY); ok {
			b = append(b, body...)
		}
	}
	return b
}

func TestPushChunked(t *testing.T) {
	p := goeptest.NewPeer(goeptest.BasicPeerHandler(nil))
	s := oppSesn(t, p)
	defer s.Close()

	data := make([]byte, 1500)
	for i := range data {
		data[i] = byte(i)
	}

	var lastOff uint32
	calls := 0
	cmd := xact.NewPushCmd()
	cmd.Name = "blob.bin"
	cmd.Type = "application/octet-stream"
	cmd.Data = data
	cmd.ProgressCb = func(c *xact.PushCmd, off uint32, total uint32) {
		if off < lastOff {
			t.Errorf("progress went backwards: %d < %d", off, lastOff)
		}
		lastOff = off
		calls++
	}
	cmd.SetTxOptions(shortTimeout())

	res, err := cmd.Run(s)
	if err != nil {
		t.Fatalf("push failed: %s", err.Error())
	}
	pres := res.(*xact.PushResult)
	if pres.Status() != 0 || pres.Len != uint32(len(data)) {
		t.Fatalf("unexpected result %+v", pres)
	}
	if lastOff != uint32(len(data)) || calls < 3 {
		t.Fatalf("progress: off=%d calls=%d", lastOff, calls)
	}

	reqs := p.Requests()[1:]
	if len(reqs) < 6 {
		t.Fatalf("object sent in %d packets; want at least 6", len(reqs))
	}
	for _, req := range reqs[:len(reqs)-1] {
		if req[0] != obex.OP_PUT {
			t.Fatalf("non-final packet opcode 0x%02x", req[0])
		}
	}
	if reqs[len(reqs)-1][0] != obex.OP_PUT|obex.FINAL_BIT {
		t.Fatalf("last packet not final")
	}
	if !bytes.Equal(bodies(reqs), data) {
		t.Fatalf("peer received a different object")
	}
}

func TestPushEmpty(t *testing.T) {
	p := goeptest.NewPeer(goeptest.BasicPeerHandler(nil))
	s := oppSesn(t, p)
	defer s.Close()

	cmd := xact.NewPushCmd()
	cmd.Name = "empty.txt"
	cmd.Type = "text/plain"
	cmd.SetTxOptions(shortTimeout())

	res, err := cmd.Run(s)
	if err != nil {
		t.Fatalf("push failed: %s", err.Error())
	}
	if res.Status() != 0 {
		t.Fatalf("status=%d", res.Status())
	}
}

func TestPushRejected(t *testing.T) {
	basic := goeptest.BasicPeerHandler(nil)
	p := goeptest.NewPeer(func(req []byte) [][]byte {
		if req[0]&^obex.FINAL_BIT == obex.OP_PUT {
			return [][]byte{goeptest.Response(obex.RSP_NOT_ACCEPTABLE,
				obex.OP_PUT, nil)}
		}
		return basic(req)
	})
	s := oppSesn(t, p)
	defer s.Close()

	cmd := xact.NewPushCmd()
	cmd.Name = "x.vcf"
	cmd.Type = "text/x-vcard"
	cmd.Data = []byte("BEGIN:VCARD\r\nEND:VCARD\r\n")
	cmd.SetTxOptions(shortTimeout())

	res, err := cmd.Run(s)
	if err != nil {
		t.Fatalf("push failed: %s", err.Error())
	}
	if res.Status() != int(obex.RESULT_NOT_ACCEPTABLE) {
		t.Fatalf("status=%d", res.Status())
	}
	if !s.Idle() {
		t.Fatalf("client not idle after rejected push")
	}
}

func TestPull(t *testing.T) {
	card := []byte("BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Owner\r\nEND:VCARD\r\n")
	p := goeptest.NewPeer(goeptest.BasicPeerHandler(card))
	s := oppSesn(t, p)
	defer s.Close()

	cmd := xact.NewPullCmd()
	cmd.SetTxOptions(shortTimeout())
	res, err := cmd.Run(s)
	if err != nil {
		t.Fatalf("pull failed: %s", err.Error())
	}
	ores := res.(*xact.ObjectResult)
	if ores.Status() != 0 || !bytes.Equal(ores.Data, card) {
		t.Fatalf("unexpected result %+v", ores)
	}
}

func silentGetPeer() *goeptest.Peer {
	basic := goeptest.BasicPeerHandler(nil)
	return goeptest.NewPeer(func(req []byte) [][]byte {
		if req[0]&^obex.FINAL_BIT == obex.OP_GET {
			return nil
		}
		return basic(req)
	})
}

func TestOperationTimeout(t *testing.T) {
	p := silentGetPeer()
	s := oppSesn(t, p)
	defer s.Close()

	cmd := xact.NewPullCmd()
	opt := sesn.NewTxOptions()
	opt.Timeout = 100 * time.Millisecond
	cmd.SetTxOptions(opt)

	if _, err := cmd.Run(s); !obexutil.IsRspTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestAbort(t *testing.T) {
	p := silentGetPeer()
	s := oppSesn(t, p)
	defer s.Close()

	cmd := xact.NewPullCmd()
	opt := sesn.NewTxOptions()
	opt.Timeout = 5 * time.Second
	cmd.SetTxOptions(opt)

	errCh := make(chan error, 1)
	go func() {
		_, err := cmd.Run(s)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := cmd.Abort(); err != nil {
		t.Fatalf("abort failed: %s", err.Error())
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("aborted command succeeded")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("aborted command did not return")
	}

	if _, err := cmd.Run(s); err == nil {
		t.Fatalf("aborted command ran again")
	}
}

func TestConnectionLostDuringOperation(t *testing.T) {
	p := silentGetPeer()
	s := oppSesn(t, p)

	cmd := xact.NewPullCmd()
	cmd.SetTxOptions(shortTimeout())

	errCh := make(chan error, 1)
	go func() {
		_, err := cmd.Run(s)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	p.Hangup()

	select {
	case err := <-errCh:
		if !obexutil.IsSesnClosed(err) {
			t.Fatalf("expected closed error, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("command did not return")
	}
}

func TestWrongProfile(t *testing.T) {
	p := goeptest.NewPeer(goeptest.BasicPeerHandler(nil))
	s := oppSesn(t, p)
	defer s.Close()

	if _, err := xact.NewPbapSizeCmd().Run(s); err == nil {
		t.Fatalf("phonebook command ran on an object push session")
	}
	if _, err := xact.NewMapFolderListCmd().Run(s); err == nil {
		t.Fatalf("message command ran on an object push session")
	}
	if _, err := xact.NewSetPathCmd().Run(s); err == nil {
		t.Fatalf("set path ran on an object push session")
	}
}

func TestPbapSize(t *testing.T) {
	basic := goeptest.BasicPeerHandler(nil)
	p := goeptest.NewPeer(func(req []byte) [][]byte {
		if req[0] == obex.OP_GET|obex.FINAL_BIT {
			return [][]byte{goeptest.Response(obex.RSP_SUCCESS, obex.OP_GET,
				func(w *obex.PacketWriter) {
					w.AppendAppParams(obex.NewAppParams().
						AddUint16(pbap.PARAM_PHONEBOOK_SIZE, 321).Bytes())
				})}
		}
		return basic(req)
	})
	s := pbapSesn(t, p)
	defer s.Close()

	cmd := xact.NewPbapSizeCmd()
	cmd.Path = "telecom/pb.vcf"
	cmd.SetTxOptions(shortTimeout())

	res, err := cmd.Run(s)
	if err != nil {
		t.Fatalf("size failed: %s", err.Error())
	}
	sres := res.(*xact.PbapSizeResult)
	if sres.Status() != 0 || sres.Size != 321 {
		t.Fatalf("unexpected result %+v", sres)
	}
}

const cardListing = `<?xml version="1.0"?>
<vCard-listing version="1.0">
<card handle="0.vcf" name="Owner"/>
<card handle="7.vcf" name="Doe;Jane"/>
</vCard-listing>`

func TestPbapList(t *testing.T) {
	p := goeptest.NewPeer(goeptest.BasicPeerHandler([]byte(cardListing)))
	s := pbapSesn(t, p)
	defer s.Close()

	cmd := xact.NewPbapListCmd()
	cmd.Path = "telecom/pb"
	cmd.Order = pbap.ORDER_ALPHABETICAL
	cmd.SetTxOptions(shortTimeout())

	res, err := cmd.Run(s)
	if err != nil {
		t.Fatalf("list failed: %s", err.Error())
	}
	lres := res.(*xact.PbapListResult)
	if lres.Status() != 0 || len(lres.Cards) != 2 {
		t.Fatalf("unexpected result %+v", lres)
	}
	if lres.Cards[1] != (profile.CardResult{Name: "Doe;Jane", Handle: "7.vcf"}) {
		t.Fatalf("unexpected card %+v", lres.Cards[1])
	}
}

func TestPbapPullFlowControl(t *testing.T) {
	vcf := bytes.Repeat([]byte("BEGIN:VCARD\r\nFN:X\r\nEND:VCARD\r\n"), 4)
	half := len(vcf) / 2

	basic := goeptest.BasicPeerHandler(nil)
	gets := 0
	p := goeptest.NewPeer(func(req []byte) [][]byte {
		if req[0] != obex.OP_GET|obex.FINAL_BIT {
			return basic(req)
		}
		gets++
		if gets == 1 {
			return [][]byte{goeptest.Response(obex.RSP_CONTINUE, obex.OP_GET,
				func(w *obex.PacketWriter) {
					w.AppendHeader(obex.HDR_BODY, vcf[:half])
				})}
		}
		return [][]byte{goeptest.Response(obex.RSP_SUCCESS, obex.OP_GET,
			func(w *obex.PacketWriter) {
				w.AppendEndOfBody(vcf[half:])
			})}
	})
	s := pbapSesn(t, p)
	defer s.Close()

	var got []byte
	cmd := xact.NewPbapPullCmd()
	cmd.Path = "telecom/pb.vcf"
	cmd.FlowControl = true
	cmd.DataCb = func(b []byte) error {
		got = append(got, b...)
		return nil
	}
	cmd.SetTxOptions(shortTimeout())

	res, err := cmd.Run(s)
	if err != nil {
		t.Fatalf("pull failed: %s", err.Error())
	}
	if res.Status() != 0 || !bytes.Equal(got, vcf) {
		t.Fatalf("status=%d; got %d of %d bytes", res.Status(), len(got),
			len(vcf))
	}
	if len(res.(*xact.ObjectResult).Data) != 0 {
		t.Fatalf("data accumulated despite callback")
	}
}

func TestSetPath(t *testing.T) {
	p := goeptest.NewPeer(goeptest.BasicPeerHandler(nil))
	s := pbapSesn(t, p)
	defer s.Close()

	cmd := xact.NewSetPathCmd()
	cmd.Path = "telecom/pb"
	cmd.SetTxOptions(shortTimeout())

	res, err := cmd.Run(s)
	if err != nil {
		t.Fatalf("set path failed: %s", err.Error())
	}
	if res.Status() != 0 {
		t.Fatalf("status=%d", res.Status())
	}

	n := 0
	for _, req := range p.Requests() {
		if req[0] == obex.OP_SETPATH {
			n++
		}
	}
	if n < 2 {
		t.Fatalf("%d set path requests; want one per level", n)
	}
}

const msgListing = `<MAP-msg-listing version="1.0">
<msg handle="20000100001" subject="Hi" datetime="20261019T101500"
  sender_name="Jane" type="SMS_GSM" read="no"/>
</MAP-msg-listing>`

func TestMapMsgList(t *testing.T) {
	p := goeptest.NewPeer(goeptest.BasicPeerHandler([]byte(msgListing)))
	s := masSesn(t, p)
	defer s.Close()

	cmd := xact.NewMapMsgListCmd()
	cmd.Folder = "inbox"
	cmd.SetTxOptions(shortTimeout())

	res, err := cmd.Run(s)
	if err != nil {
		t.Fatalf("listing failed: %s", err.Error())
	}
	lres := res.(*xact.ListingResult)
	if lres.Status() != 0 || len(lres.Items) != 1 {
		t.Fatalf("unexpected result %+v", lres)
	}
	mi, ok := lres.Items[0].(profile.MessageItem)
	if !ok || mi.Handle != "20000100001" || mi.Read || mi.Sender != "Jane" {
		t.Fatalf("unexpected item %+v", lres.Items[0])
	}
}

func TestMapSetStatus(t *testing.T) {
	p := goeptest.NewPeer(goeptest.BasicPeerHandler(nil))
	s := masSesn(t, p)
	defer s.Close()

	cmd := xact.NewMapSetStatusCmd()
	cmd.Handle = "20000100001"
	cmd.Read = true
	cmd.SetTxOptions(shortTimeout())

	res, err := cmd.Run(s)
	if err != nil {
		t.Fatalf("set status failed: %s", err.Error())
	}
	if res.Status() != 0 {
		t.Fatalf("status=%d", res.Status())
	}

	cmd = xact.NewMapSetStatusCmd()
	cmd.Handle = "not-a-handle"
	if _, err := cmd.Run(s); err == nil {
		t.Fatalf("bad handle accepted")
	}
}
