package services

import "testing"

func TestNormalizeCarrierName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"usps", "USPS"},
		{"United States Postal Service", "USPS"},
		{"fedex", "FedEx"},
		{"Federal Express", "FedEx"},
		{"FEDEX", "FedEx"},
		{"ups", "UPS"},
		{"united parcel service", "UPS"},
		{"  DHL Express  ", "DHL Express"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCarrierName(tt.in); got != tt.want {
			t.Errorf("NormalizeCarrierName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildTrackingURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		carrier  string
		number   string
		want     string
	}{
		{"USPS", "9400 1", "https://tools.usps.com/go/TrackConfirmAction?tLabels=9400+1"},
		{"FedEx", "TRK1", "https://www.fedex.com/fedextrack/?trknbr=TRK1"},
		{"UPS", "1Z999", "https://www.ups.com/track?tracknum=1Z999"},
		{"DHL Express", "123", ""},
		{"USPS", "   ", ""},
	}

	for _, tt := range tests {
		if got := BuildTrackingURL(tt.carrier, tt.number); got != tt.want {
			t.Errorf("BuildTrackingURL(%q, %q) = %q, want %q", tt.carrier, tt.number, got, tt.want)
		}
	}
}
