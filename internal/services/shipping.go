package services

import (
	"net/url"
	"strings"
)

const (
	carrierUSPS  = "usps"
	carrierFedEx = "fedex"
	carrierUPS   = "ups"
)

func carrierKey(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	replacer := strings.NewReplacer(" ", "", "-", "", "_", "")
	normalized = replacer.Replace(normalized)

	switch normalized {
	case "usps", "unitedstatespostalservice":
		return carrierUSPS
	case "fedex", "federalexpress":
		return carrierFedEx
	case "ups", "unitedparcelservice":
		return carrierUPS
	default:
		return ""
	}
}

// CanonicalCarrierName maps a carrier key to the display name.
func CanonicalCarrierName(carrier string) string {
	switch carrierKey(carrier) {
	case carrierUSPS:
		return "USPS"
	case carrierFedEx:
		return "FedEx"
	case carrierUPS:
		return "UPS"
	default:
		return ""
	}
}

// NormalizeCarrierName keeps custom carriers untouched and normalizes known ones.
func NormalizeCarrierName(carrier string) string {
	trimmed := strings.TrimSpace(carrier)
	if trimmed == "" {
		return ""
	}
	if canonical := CanonicalCarrierName(trimmed); canonical != "" {
		return canonical
	}
	return trimmed
}

// BuildTrackingURL returns a carrier-specific tracking URL. Unknown carriers return empty.
func BuildTrackingURL(carrier, trackingNumber string) string {
	number := strings.TrimSpace(trackingNumber)
	if number == "" {
		return ""
	}

	escaped := url.QueryEscape(number)
	switch carrierKey(carrier) {
	case carrierUSPS:
		return "https://tools.usps.com/go/TrackConfirmAction?tLabels=" + escaped
	case carrierFedEx:
		return "https://www.fedex.com/fedextrack/?trknbr=" + escaped
	case carrierUPS:
		return "https://www.ups.com/track?tracknum=" + escaped
	default:
		return ""
	}
}
