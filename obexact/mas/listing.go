package mas

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"

	"mynewt.apache.org/obexmgr/obexact/profile"
)

const MESSAGE_HANDLE_SIZE = 8

// 64-bit message handle, written on the wire as 16 hex digits.
type MessageHandle [MESSAGE_HANDLE_SIZE]byte

func (h MessageHandle) String() string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// Parses a handle as found in a message listing.  Short handles are
// right-aligned.
func ParseMessageHandle(s string) (MessageHandle, error) {
	var h MessageHandle

	if len(s) > 2*MESSAGE_HANDLE_SIZE {
		return h, errors.Errorf("message handle too long: %s", s)
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return h, errors.Wrapf(err, "invalid message handle %s", s)
	}
	copy(h[MESSAGE_HANDLE_SIZE-len(b):], b)
	return h, nil
}

func decodeListing(op opKind, b []byte) ([]interface{}, error) {
	var items []interface{}
	var err error

	switch op {
	case OP_FOLDER_LISTING:
		err = profile.DecodeListing(b, "folder",
			func(attrs map[string]string) {
				items = append(items, profile.FolderItem{Name: attrs["name"]})
			})

	case OP_MSG_LISTING:
		err = profile.DecodeListing(b, "msg",
			func(attrs map[string]string) {
				items = append(items, profile.MessageItem{
					Handle:   attrs["handle"],
					Type:     attrs["type"],
					Read:     attrs["read"] == "yes",
					Subject:  attrs["subject"],
					Datetime: attrs["datetime"],
					Sender:   attrs["sender_name"],
				})
			})

	case OP_CONVO_LISTING:
		err = profile.DecodeListing(b, "conversation",
			func(attrs map[string]string) {
				items = append(items, profile.ConversationItem{Id: attrs["id"]})
			})
	}

	if err != nil {
		return nil, err
	}
	return items, nil
}
