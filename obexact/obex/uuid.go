package obex

// OBEX TARGET UUIDs of the supported services.
var (
	PBAP_TARGET = []byte{
		0x79, 0x61, 0x35, 0xf0, 0xf0, 0xc5, 0x11, 0xd8,
		0x09, 0x66, 0x08, 0x00, 0x20, 0x0c, 0x9a, 0x66,
	}

	MAS_TARGET = []byte{
		0xbb, 0x58, 0x2b, 0x40, 0x42, 0x0c, 0x11, 0xdb,
		0xb0, 0xde, 0x08, 0x00, 0x20, 0x0c, 0x9a, 0x66,
	}
)

// Bluetooth SIG 16-bit service class UUIDs used for service lookup.
const (
	SVC_OBEX_OBJECT_PUSH uint16 = 0x1105
	SVC_PBAP_PSE         uint16 = 0x112f
	SVC_MAP_MAS          uint16 = 0x1132
)
