package models

import "testing"

func TestBlocksPackage(t *testing.T) {
	blockAll := RestrictionDefinition{Name: "bedtime"}
	if !blockAll.BlocksPackage("com.example.game") {
		t.Error("empty blocked list should block everything")
	}
	if !blockAll.BlocksPackage("com.android.dialer") {
		t.Error("emergency package should be blocked unless AllowEmergencyApps is set")
	}

	blockAll.AllowEmergencyApps = true
	if blockAll.BlocksPackage("com.android.dialer") {
		t.Error("emergency package should be exempt with AllowEmergencyApps")
	}
	if !blockAll.BlocksPackage("com.example.game") {
		t.Error("ordinary package should still be blocked with AllowEmergencyApps")
	}

	listed := RestrictionDefinition{
		Name:            "no social",
		BlockedPackages: []string{"com.example.social"},
	}
	if !listed.BlocksPackage("com.example.social") {
		t.Error("listed package should be blocked")
	}
	if listed.BlocksPackage("com.example.other") {
		t.Error("unlisted package should not be blocked")
	}
}

func TestIsEmergencyPackage(t *testing.T) {
	if !IsEmergencyPackage("com.google.android.dialer") {
		t.Error("dialer should be on the emergency allowlist")
	}
	if IsEmergencyPackage("com.example.social") {
		t.Error("arbitrary package should not be on the emergency allowlist")
	}
}

func TestCreateRestrictionRequestValidate(t *testing.T) {
	valid := CreateRestrictionRequest{
		Name:        "study time",
		StartMinute: 19 * 60,
		EndMinute:   21 * 60,
		ActiveDays:  []int{1, 2, 3, 4, 5},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid request failed validation: %v", err)
	}

	cases := []struct {
		name string
		req  CreateRestrictionRequest
		want error
	}{
		{"empty name", CreateRestrictionRequest{EndMinute: 60}, ErrEmptyRestrictionName},
		{"negative start", CreateRestrictionRequest{Name: "x", StartMinute: -1}, ErrInvalidTimeRange},
		{"end out of range", CreateRestrictionRequest{Name: "x", EndMinute: MinutesPerDay}, ErrInvalidTimeRange},
		{"day out of range", CreateRestrictionRequest{Name: "x", ActiveDays: []int{-1}}, ErrInvalidActiveDay},
	}
	for _, tc := range cases {
		if err := tc.req.Validate(); err != tc.want {
			t.Errorf("%s: Validate = %v, want %v", tc.name, err, tc.want)
		}
	}

	long := valid
	for len(long.Name) <= MaxRestrictionNameLength {
		long.Name += "aaaaaaaaaa"
	}
	if err := long.Validate(); err != ErrRestrictionNameTooLong {
		t.Errorf("overlong name: Validate = %v, want ErrRestrictionNameTooLong", err)
	}
}

func TestRequestValidators(t *testing.T) {
	if err := (&CreateLimitRequest{PackageName: "com.example.social", TargetLimitMillis: 1}).Validate(); err != nil {
		t.Errorf("valid limit request failed: %v", err)
	}
	if err := (&CreateLimitRequest{TargetLimitMillis: 1}).Validate(); err != ErrEmptyPackageName {
		t.Errorf("missing package: Validate = %v, want ErrEmptyPackageName", err)
	}
	if err := (&CreateLimitRequest{PackageName: "x"}).Validate(); err != ErrInvalidLimitInput {
		t.Errorf("zero target: Validate = %v, want ErrInvalidLimitInput", err)
	}

	if err := (&StartFocusRequest{DurationMinutes: 25}).Validate(); err != nil {
		t.Errorf("valid focus request failed: %v", err)
	}
	if err := (&StartFocusRequest{}).Validate(); err != ErrInvalidDuration {
		t.Errorf("zero duration: Validate = %v, want ErrInvalidDuration", err)
	}

	if err := (&RecordUsageRequest{PackageName: "x", UsageMillis: -1}).Validate(); err != ErrInvalidDuration {
		t.Errorf("negative usage: Validate = %v, want ErrInvalidDuration", err)
	}
}
