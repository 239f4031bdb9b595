package settings_test

import (
	"fmt"
	"strings"
)

type recordingHost struct {
	changes    [][]byte
	settingIDs []string
	saveNeeded int
}

func (h *recordingHost) OnChange(settingID string, value []byte) {
	h.settingIDs = append(h.settingIDs, settingID)
	h.changes = append(h.changes, append([]byte(nil), value...))
}

func (h *recordingHost) SetSaveNeeded() {
	h.saveNeeded++
}

func (h *recordingHost) last() string {
	if len(h.changes) == 0 {
		return ""
	}
	return string(h.changes[len(h.changes)-1])
}

// sequenceTokens hands out predictable tokens: tok-000001..., padded to length.
func sequenceTokens() func(int) (string, error) {
	n := 0
	return func(length int) (string, error) {
		n++
		s := fmt.Sprintf("tok-%06d", n)
		return s + strings.Repeat("x", length-len(s)), nil
	}
}
