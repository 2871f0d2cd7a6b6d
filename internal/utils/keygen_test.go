package utils

import "testing"

func TestGenerateOTPIsSixDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != OTPLength {
			t.Fatalf("expected %d digits, got %q", OTPLength, code)
		}
		if code[0] == '0' {
			t.Fatalf("expected no leading zero, got %q", code)
		}
		if NormalizeCode(code) != code {
			t.Fatalf("expected digits only, got %q", code)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	cases := map[string]string{
		"123456":     "123456",
		"12 34 56":   "123456",
		"1234567":    "123456",
		"abc":        "",
		"12-3":       "123",
		"٣123456789": "123456",
	}
	for in, want := range cases {
		if got := NormalizeCode(in); got != want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", in, got, want)
		}
	}
}
