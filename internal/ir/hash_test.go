package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepsDigestKnownValues(t *testing.T) {
	// Reference values computed as md5(JSON.stringify(steps)).
	tests := []struct {
		name     string
		steps    []string
		expected string
	}{
		{"two steps", []string{"When X", "Then Y"}, "dd366bfd71e81e55acdb23eda1df68ca"},
		{"empty", []string{}, "d751713988987e9331980363e24189ce"},
		{"html characters", []string{"a<b>&c"}, "92600d8d38738ea3bbd9550c86d64242"},
		{"decomposed accent", []string{"Given cafe\u0301"}, "e81516db70c9f2784e19b0b28afaedbe"},
		{"composed accent", []string{"Given caf\u00e9"}, "f13f635822e55b4f956ebbf37753b39b"},
		{
			"statement flow",
			[]string{"Given a statement", "When it is sent", "Then the LRS responds 200"},
			"4491baef9828015756b04636f43a3ea6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MustStepsDigest(tt.steps))
		})
	}
}

func TestStepsDigestLength(t *testing.T) {
	d := MustStepsDigest([]string{"When X"})
	assert.Len(t, d, FingerprintLen)
}

func TestStepsDigestOrderSensitive(t *testing.T) {
	a := MustStepsDigest([]string{"When X", "Then Y"})
	b := MustStepsDigest([]string{"Then Y", "When X"})
	assert.NotEqual(t, a, b)
}

func TestStepsDigestNilEqualsEmpty(t *testing.T) {
	assert.Equal(t, MustStepsDigest([]string{}), MustStepsDigest(nil))
}

func TestStepsDigestKeepsNormalizationForms(t *testing.T) {
	composed := MustStepsDigest([]string{"Given caf\u00e9"})
	decomposed := MustStepsDigest([]string{"Given cafe\u0301"})
	assert.NotEqual(t, composed, decomposed)
}
