package xact

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/obexmgr/obexact/obex"
	"mynewt.apache.org/obexmgr/obexact/pbap"
	"mynewt.apache.org/obexmgr/obexact/profile"
	"mynewt.apache.org/obexmgr/obexact/sesn"
)

func pbapClient(s *sesn.Sesn) (*pbap.Client, error) {
	c, ok := s.Client().(*pbap.Client)
	if !ok {
		return nil, fmt.Errorf("session is not a phonebook session (%T)",
			s.Client())
	}
	return c, nil
}

// Filters shared by the phonebook commands.  Zero values leave a parameter
// out of the request.
type PbapFilter struct {
	VcardSelector         uint32
	VcardSelectorOperator uint8
	PropertySelector      uint32
	MaxListCount          uint16
	ListStartOffset       uint16
}

func (f *PbapFilter) apply(pc *pbap.Client) error {
	if err := pc.SetVcardSelector(f.VcardSelector); err != nil {
		return err
	}
	if err := pc.SetVcardSelectorOperator(f.VcardSelectorOperator); err != nil {
		return err
	}
	if err := pc.SetPropertySelector(f.PropertySelector); err != nil {
		return err
	}
	if err := pc.SetMaxListCount(f.MaxListCount); err != nil {
		return err
	}
	return pc.SetListStartOffset(f.ListStartOffset)
}

//////////////////////////////////////////////////////////////////////////////
// $size                                                                    //
//////////////////////////////////////////////////////////////////////////////

type PbapSizeCmd struct {
	CmdBase
	Path          string
	VcardSelector uint32
}

type PbapSizeResult struct {
	Rc   obex.Result
	Size uint16
}

func NewPbapSizeCmd() *PbapSizeCmd {
	return &PbapSizeCmd{
		CmdBase: NewCmdBase(),
	}
}

func newPbapSizeResult() *PbapSizeResult {
	return &PbapSizeResult{}
}

func (r *PbapSizeResult) Status() int {
	return int(r.Rc)
}

func (c *PbapSizeCmd) Run(s *sesn.Sesn) (Result, error) {
	pc, err := pbapClient(s)
	if err != nil {
		return nil, err
	}

	res := newPbapSizeResult()
	start := func() error {
		if err := pc.SetVcardSelector(c.VcardSelector); err != nil {
			return err
		}
		return pc.GetPhonebookSize(c.Path)
	}

	// A size query ends with PhonebookSize alone; no OperationCompleted
	// follows.
	err = txOp(s, &c.CmdBase, start, func(ev interface{}) (bool, error) {
		switch e := ev.(type) {
		case profile.PhonebookSize:
			res.Rc = e.Status
			res.Size = e.Size
			return true, nil

		case profile.OperationCompleted:
			res.Rc = e.Status
			return true, nil

		default:
			return false, nil
		}
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

//////////////////////////////////////////////////////////////////////////////
// $pull                                                                    //
//////////////////////////////////////////////////////////////////////////////

// Pulls a whole phonebook object.  With FlowControl set, each follow-up
// request waits until DataCb has consumed the previous packet.
type PbapPullCmd struct {
	CmdBase
	PbapFilter
	Path        string
	FlowControl bool

	// Nil: the vCards are accumulated in the result.
	DataCb func(b []byte) error
}

func NewPbapPullCmd() *PbapPullCmd {
	return &PbapPullCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *PbapPullCmd) Run(s *sesn.Sesn) (Result, error) {
	pc, err := pbapClient(s)
	if err != nil {
		return nil, err
	}

	start := func() error {
		if err := c.PbapFilter.apply(pc); err != nil {
			return err
		}
		if err := pc.SetFlowControl(c.FlowControl); err != nil {
			return err
		}
		return pc.PullPhonebook(c.Path)
	}

	res := newObjectResult()
	dataCb := func(b []byte) error {
		if c.DataCb != nil {
			if err := c.DataCb(b); err != nil {
				return err
			}
		} else {
			res.Data = append(res.Data, b...)
		}

		if c.FlowControl {
			return s.Run(func() error {
				pc.NextPacket()
				return nil
			})
		}
		return nil
	}

	ores, err := txObject(s, &c.CmdBase, start, dataCb)
	if err != nil {
		return nil, err
	}

	res.Rc = ores.Rc
	return res, nil
}

//////////////////////////////////////////////////////////////////////////////
// $list                                                                    //
//////////////////////////////////////////////////////////////////////////////

type PbapListCmd struct {
	CmdBase
	PbapFilter
	Path           string
	Order          uint8
	SearchProperty uint8
	SearchValue    string
}

type PbapListResult struct {
	Rc    obex.Result
	Cards []profile.CardResult
}

func NewPbapListCmd() *PbapListCmd {
	return &PbapListCmd{
		CmdBase: NewCmdBase(),
	}
}

func newPbapListResult() *PbapListResult {
	return &PbapListResult{}
}

func (r *PbapListResult) Status() int {
	return int(r.Rc)
}

func txCardListing(s *sesn.Sesn, c *CmdBase,
	start func() error) (*PbapListResult, error) {

	res := newPbapListResult()
	err := txOp(s, c, start, func(ev interface{}) (bool, error) {
		switch e := ev.(type) {
		case profile.CardResult:
			res.Cards = append(res.Cards, e)

		case profile.ListingDone:

		case profile.OperationCompleted:
			res.Rc = e.Status
			return true, nil

		default:
			log.Debugf("pbap list: ignoring event %T", ev)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (c *PbapListCmd) Run(s *sesn.Sesn) (Result, error) {
	pc, err := pbapClient(s)
	if err != nil {
		return nil, err
	}

	start := func() error {
		if err := c.PbapFilter.apply(pc); err != nil {
			return err
		}
		if err := pc.SetOrder(c.Order); err != nil {
			return err
		}
		if err := pc.SetSearchProperty(c.SearchProperty); err != nil {
			return err
		}
		if err := pc.SetSearchValue(c.SearchValue); err != nil {
			return err
		}
		return pc.PullVcardListing(c.Path)
	}

	return txCardListing(s, &c.CmdBase, start)
}

//////////////////////////////////////////////////////////////////////////////
// $lookup                                                                  //
//////////////////////////////////////////////////////////////////////////////

// Finds the phonebook entries carrying a phone number.
type PbapLookupCmd struct {
	CmdBase
	Number string
}

func NewPbapLookupCmd() *PbapLookupCmd {
	return &PbapLookupCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *PbapLookupCmd) Run(s *sesn.Sesn) (Result, error) {
	pc, err := pbapClient(s)
	if err != nil {
		return nil, err
	}

	return txCardListing(s, &c.CmdBase, func() error {
		return pc.LookupByNumber(c.Number)
	})
}

//////////////////////////////////////////////////////////////////////////////
// $entry                                                                   //
//////////////////////////////////////////////////////////////////////////////

type PbapEntryCmd struct {
	CmdBase
	Name             string
	PropertySelector uint32
}

func NewPbapEntryCmd() *PbapEntryCmd {
	return &PbapEntryCmd{
		CmdBase: NewCmdBase(),
	}
}

func (c *PbapEntryCmd) Run(s *sesn.Sesn) (Result, error) {
	pc, err := pbapClient(s)
	if err != nil {
		return nil, err
	}

	return txObject(s, &c.CmdBase, func() error {
		if err := pc.SetPropertySelector(c.PropertySelector); err != nil {
			return err
		}
		return pc.PullVcardEntry(c.Name)
	}, nil)
}
