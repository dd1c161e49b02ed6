package fees

import "strconv"

// Metadata keys stamped onto processor charges at creation time.
const (
	metaKeyPayLinkID  = "paylink_id"
	metaKeyFeeBase    = "fee_base"
	metaKeyFeeMonthly = "fee_monthly"
)

// ChargeMetadata is the frozen fee decision carried on a charge. It is
// computed once before the charge is created and is the single source of
// truth for every downstream consumer; settlement never recomputes it from
// live accrual state.
type ChargeMetadata struct {
	PayLinkID    uint
	BaseCents    int64
	MonthlyCents int64
}

// Encode serializes the frozen decision into the processor's key/value
// metadata bag.
func (m ChargeMetadata) Encode() map[string]string {
	return map[string]string{
		metaKeyPayLinkID:  strconv.FormatUint(uint64(m.PayLinkID), 10),
		metaKeyFeeBase:    strconv.FormatInt(m.BaseCents, 10),
		metaKeyFeeMonthly: strconv.FormatInt(m.MonthlyCents, 10),
	}
}

// ParseMetadata reads the frozen decision back from a charge's metadata.
// A missing or malformed pay-link reference yields PayLinkID zero; callers
// treat that as an unattributable charge.
func ParseMetadata(md map[string]string) ChargeMetadata {
	var m ChargeMetadata
	if md == nil {
		return m
	}
	if v, err := strconv.ParseUint(md[metaKeyPayLinkID], 10, 64); err == nil {
		m.PayLinkID = uint(v)
	}
	if v, err := strconv.ParseInt(md[metaKeyFeeBase], 10, 64); err == nil {
		m.BaseCents = v
	}
	if v, err := strconv.ParseInt(md[metaKeyFeeMonthly], 10, 64); err == nil {
		m.MonthlyCents = v
	}
	return m
}
