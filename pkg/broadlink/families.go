package broadlink

// This file maps 16-bit device-type codes to command-dialect families.
// The table covers the model codes observed in shipped firmware; unknown
// codes resolve to FamilyUnsupported, which still authenticates but
// rejects every family operation.

// Family is the coarse capability grouping that selects a device's
// command-payload dialect.
type Family uint8

const (
	// FamilyUnsupported is the fallback for unrecognized device types.
	// Auth works; all family operations fail with ErrUnsupportedDevice.
	FamilyUnsupported Family = iota

	// FamilyRM covers the RM2/RM3 universal remote line.
	FamilyRM

	// FamilyRM4 covers the RM4 line, which prefixes every generic payload
	// with 0x04 0x00 and shifts response data by two bytes.
	FamilyRM4

	// FamilySP1 covers the original SP1 plug with its pre-0x6A dialect.
	FamilySP1

	// FamilySP2 covers the SP2/SP3/SP3S/SP4 and SPMini plug lines.
	FamilySP2

	// FamilyMP1 covers the MP1 four-socket power strip.
	FamilyMP1

	// FamilyA1 covers the A1 environment sensor.
	FamilyA1

	// FamilyLB covers the LB1/LB27 light bulbs.
	FamilyLB

	// FamilyHub covers the S3 hub and its sub-devices.
	FamilyHub

	// FamilyHysen covers Hysen-protocol thermostats.
	FamilyHysen

	// FamilyDooya covers the Dooya DT360E curtain motor.
	FamilyDooya
)

// String returns the human-readable family name.
func (f Family) String() string {
	switch f {
	case FamilyRM:
		return "RM"
	case FamilyRM4:
		return "RM4"
	case FamilySP1:
		return "SP1"
	case FamilySP2:
		return "SP2"
	case FamilyMP1:
		return "MP1"
	case FamilyA1:
		return "A1"
	case FamilyLB:
		return "LB"
	case FamilyHub:
		return "Hub"
	case FamilyHysen:
		return "Hysen"
	case FamilyDooya:
		return "Dooya"
	case FamilyUnsupported:
		return "Unsupported"
	default:
		return "Unsupported"
	}
}

// familyTable maps literal device-type codes to families. Codes not
// listed here fall through to the range rules in FamilyOf.
//
//nolint:gochecknoglobals // dispatch table is intentionally package-level.
var familyTable = map[uint16]Family{
	// SP1.
	0x0000: FamilySP1,

	// SP2/SP3/SP3S/SPMini lines.
	0x2711: FamilySP2, // SP2
	0x2719: FamilySP2, // Honeywell SP2
	0x7919: FamilySP2, // Honeywell SP2
	0x271A: FamilySP2, // Honeywell SP2
	0x791A: FamilySP2, // Honeywell SP2
	0x2720: FamilySP2, // SPMini
	0x753E: FamilySP2, // SP3
	0x7D00: FamilySP2, // OEM SP3
	0x947A: FamilySP2, // SP3S
	0x9479: FamilySP2, // SP3S
	0x2728: FamilySP2, // SPMini2
	0x2733: FamilySP2, // OEM SPMini
	0x273E: FamilySP2, // OEM SPMini
	0x7D0D: FamilySP2, // TMall OEM SPMini3
	0x2736: FamilySP2, // SPMiniPlus

	// RM2/RM3.
	0x2712: FamilyRM, // RM2
	0x2737: FamilyRM, // RM Mini
	0x273D: FamilyRM, // RM Pro Phicomm
	0x2783: FamilyRM, // RM2 Home Plus
	0x277C: FamilyRM, // RM2 Home Plus GDT
	0x272A: FamilyRM, // RM2 Pro Plus
	0x2787: FamilyRM, // RM2 Pro Plus 2
	0x279D: FamilyRM, // RM3 Pro Plus
	0x27A9: FamilyRM, // RM3 Pro Plus
	0x278B: FamilyRM, // RM2 Pro Plus BL
	0x2797: FamilyRM, // RM2 Pro Plus HYC
	0x27A1: FamilyRM, // RM2 Pro Plus R1
	0x27A6: FamilyRM, // RM2 Pro PP
	0x278F: FamilyRM, // RM Mini Shate
	0x27C2: FamilyRM, // RM Mini 3

	// RM4.
	0x51DA: FamilyRM4, // RM4b
	0x5F36: FamilyRM4, // RM Mini 3 (RM4 firmware)
	0x6026: FamilyRM4, // RM4 Pro
	0x6070: FamilyRM4, // RM4c Mini
	0x610E: FamilyRM4, // RM4 Mini
	0x610F: FamilyRM4, // RM4c
	0x61A2: FamilyRM4, // RM4 Pro
	0x62BC: FamilyRM4, // RM4 Mini
	0x62BE: FamilyRM4, // RM4c
	0x649B: FamilyRM4, // RM4 Pro
	0x653C: FamilyRM4, // RM4 Pro

	// MP1.
	0x4EB5: FamilyMP1, // MP1
	0x4EF7: FamilyMP1, // Honyar OEM MP1
	0x4F1B: FamilyMP1, // MP1-1K3S2U
	0x4F65: FamilyMP1, // MP1-1K3S2U

	// A1.
	0x2714: FamilyA1, // A1

	// Light bulbs.
	0x5043: FamilyLB,  // SB800TD
	0x504E: FamilyLB,  // LB1
	0x606E: FamilyLB,  // SB500TD
	0x60C7: FamilyLB,  // LB1
	0x60C8: FamilyLB,  // LB1
	0x6112: FamilyLB,  // LB1
	0x644B: FamilyLB,  // LB27 R1
	0x644C: FamilyLB,  // LB27 R1
	0x644E: FamilyLB,  // LB27 R1

	// Hub.
	0xA59C: FamilyHub, // S3
	0xA64D: FamilyHub, // S3

	// Thermostats.
	0x4EAD: FamilyHysen, // Hysen HY02B05H

	// Curtain motors.
	0x4E4D: FamilyDooya, // Dooya DT360E
}

// spMini2Lo and spMini2Hi bound the OEM SPMini2 code range.
const (
	spMini2Lo uint16 = 0x7530
	spMini2Hi uint16 = 0x7918
)

// FamilyOf resolves a device-type code to its family. Codes in the OEM
// SPMini2 range map to FamilySP2; everything else not in the table is
// FamilyUnsupported.
func FamilyOf(deviceType uint16) Family {
	if f, ok := familyTable[deviceType]; ok {
		return f
	}
	if deviceType >= spMini2Lo && deviceType <= spMini2Hi {
		return FamilySP2
	}
	return FamilyUnsupported
}
