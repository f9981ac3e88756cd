package config

import (
	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/obexmgr/obexact/bearer/bluez"
	"mynewt.apache.org/obexmgr/obexact/bearer/btsock"
	"mynewt.apache.org/obexmgr/obexact/bearer/obserial"
	"mynewt.apache.org/obexmgr/obexact/bearer/tcp"
	"mynewt.apache.org/obexmgr/obexact/bearer/ws"
	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/sesn"
)

func mtuOr(cc *ConnCfg, dflt int) int {
	if cc.Mtu > 0 {
		return cc.Mtu
	}
	return dflt
}

// The record a static lookup answers with.  Transports that do not take a
// channel get the bare service UUID.
func staticRecord(cc *ConnCfg, svcUuid uint16) goep.ServiceRecord {
	rec := goep.ServiceRecord{
		RfcommChannel:     cc.Channel,
		L2capPsm:          cc.Psm,
		SupportedFeatures: cc.Features,
		MasInstanceId:     uint8(cc.Instance),
	}
	if !rec.Usable() {
		rec.ProfileUuid = svcUuid
	}
	return rec
}

func buildBearer(ct ConnType, cc *ConnCfg) (sesn.BearerBuilder, error) {
	switch ct {
	case CONN_TYPE_BLUEZ:
		cfg := bluez.NewXportCfg()
		if cc.Adapter != "" {
			cfg.Adapter = cc.Adapter
		}
		cfg.Mtu = mtuOr(cc, cfg.Mtu)
		return func(sink goep.Sink) goep.Bearer {
			return bluez.NewBearer(cfg, sink)
		}, nil

	case CONN_TYPE_BTSOCK:
		cfg := btsock.NewXportCfg()
		cfg.Mtu = mtuOr(cc, cfg.Mtu)
		return func(sink goep.Sink) goep.Bearer {
			return btsock.NewBearer(cfg, sink)
		}, nil

	case CONN_TYPE_SERIAL:
		cfg := obserial.NewXportCfg()
		cfg.DevPath = cc.Dev
		if cc.Baud != 0 {
			cfg.Baud = cc.Baud
		}
		cfg.Framed = cc.Framed
		cfg.Mtu = mtuOr(cc, cfg.Mtu)
		return func(sink goep.Sink) goep.Bearer {
			return obserial.NewBearer(cfg, sink)
		}, nil

	case CONN_TYPE_TCP:
		cfg := tcp.NewXportCfg()
		cfg.Mtu = mtuOr(cc, cfg.Mtu)
		return func(sink goep.Sink) goep.Bearer {
			return tcp.NewBearer(cfg, sink)
		}, nil

	case CONN_TYPE_WS:
		cfg := ws.NewXportCfg()
		cfg.Url = cc.Url
		cfg.Mtu = mtuOr(cc, cfg.Mtu)
		return func(sink goep.Sink) goep.Bearer {
			return ws.NewBearer(cfg, sink)
		}, nil

	default:
		return nil, util.FmtNewtError("Unknown connection type: %s (%d)",
			ConnTypeToString(ct), int(ct))
	}
}

// Fills in everything but the profile client for a session to the service
// identified by svcUuid.
func BuildSesnCfg(ct ConnType, cc *ConnCfg,
	svcUuid uint16) (sesn.SesnCfg, error) {

	sc := sesn.NewSesnCfg()

	bb, err := buildBearer(ct, cc)
	if err != nil {
		return sc, err
	}
	sc.BuildBearer = bb

	sc.Peer = cc.Peer
	if ct == CONN_TYPE_SERIAL && sc.Peer == "" {
		sc.Peer = cc.Dev
	}
	if sc.Peer == "" {
		return sc, util.NewNewtError("Connstring lacks a peer")
	}

	if ct == CONN_TYPE_BLUEZ {
		adapter := cc.Adapter
		if adapter == "" {
			adapter = bluez.NewXportCfg().Adapter
		}
		sc.BuildLookup = func(sink goep.Sink) goep.ServiceLookup {
			return bluez.NewLookup(adapter, sink)
		}
	} else {
		sc.Record = staticRecord(cc, svcUuid)
	}

	sc.ForceGoep2 = cc.Goep2
	if cc.ConnTimeout > 0 {
		sc.ConnTimeout = cc.ConnTimeout
	}

	return sc, nil
}
