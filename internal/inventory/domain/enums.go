package domain

// BrandType is the pad brand a batch was supplied as
type BrandType string

const (
	BrandAlwaysUltra   BrandType = "Always Ultra"
	BrandWhisperChoice BrandType = "Whisper Choice"
	BrandStayfree      BrandType = "Stayfree"
	BrandKotex         BrandType = "Kotex"
	BrandCarefree      BrandType = "Carefree"
	BrandGeneric       BrandType = "Generic Brand"
	BrandDonated       BrandType = "Donated Pads"
	BrandOther         BrandType = "Other"
)

// BrandTypes lists every accepted brand in display order
var BrandTypes = []BrandType{
	BrandAlwaysUltra,
	BrandWhisperChoice,
	BrandStayfree,
	BrandKotex,
	BrandCarefree,
	BrandGeneric,
	BrandDonated,
	BrandOther,
}

// IsValid reports whether b is one of the accepted brands
func (b BrandType) IsValid() bool {
	for _, v := range BrandTypes {
		if v == b {
			return true
		}
	}
	return false
}

// StorageLocation is where a batch is physically kept
type StorageLocation string

const (
	LocationSchoolClinic StorageLocation = "School Clinic"
	LocationPadBankRoom  StorageLocation = "Designated Pad Bank Room"
	LocationAdminOffice  StorageLocation = "Administrative Office"
	LocationNursesOffice StorageLocation = "Nurse's Office"
	LocationChangingRoom StorageLocation = "Girls' Changing Room"
	LocationMainStorage  StorageLocation = "Main Storage Room"
	LocationOther        StorageLocation = "Other"
)

// StorageLocations lists every accepted location in display order
var StorageLocations = []StorageLocation{
	LocationSchoolClinic,
	LocationPadBankRoom,
	LocationAdminOffice,
	LocationNursesOffice,
	LocationChangingRoom,
	LocationMainStorage,
	LocationOther,
}

// IsValid reports whether l is one of the accepted locations
func (l StorageLocation) IsValid() bool {
	for _, v := range StorageLocations {
		if v == l {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a batch
type Status string

const (
	StatusActive   Status = "active"
	StatusDepleted Status = "depleted"
	StatusExpired  Status = "expired"
	StatusDamaged  Status = "damaged"
)

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusDepleted, StatusExpired, StatusDamaged:
		return true
	}
	return false
}

// AdjustmentType is the kind of manual stock change
type AdjustmentType string

const (
	AdjustmentAddition   AdjustmentType = "addition"
	AdjustmentReduction  AdjustmentType = "reduction"
	AdjustmentCorrection AdjustmentType = "correction"
)

// IsValid reports whether a is a known adjustment type
func (a AdjustmentType) IsValid() bool {
	switch a {
	case AdjustmentAddition, AdjustmentReduction, AdjustmentCorrection:
		return true
	}
	return false
}

// Distribution channels, used for events and metrics
const (
	ChannelCheckout = "checkout"
	ChannelManual   = "manual"
)
