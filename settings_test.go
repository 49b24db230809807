package muninn

import "testing"

func TestDefaultSettingsValidates(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("DefaultSettings() should validate, got: %v", err)
	}
}

func TestValidateRejectsMissingCollaborators(t *testing.T) {
	s := DefaultSettings()
	s.Binner = nil
	if err := s.Validate(); err == nil {
		t.Error("expected an error with a nil Binner")
	}

	s = DefaultSettings()
	s.UpdateScheme = nil
	if err := s.Validate(); err == nil {
		t.Error("expected an error with a nil UpdateScheme")
	}

	s = DefaultSettings()
	s.WeightScheme = nil
	if err := s.Validate(); err == nil {
		t.Error("expected an error with a nil WeightScheme")
	}

	s = DefaultSettings()
	s.HistoryMemory = 0
	if err := s.Validate(); err == nil {
		t.Error("expected an error with HistoryMemory <= 0")
	}

	s = DefaultSettings()
	s.HistoryMinCount = -1
	if err := s.Validate(); err == nil {
		t.Error("expected an error with a negative HistoryMinCount")
	}
}
