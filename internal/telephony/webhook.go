package telephony

import (
	"net/http"
	"strings"
)

// Twilio posts webhook callbacks as application/x-www-form-urlencoded.
// Only the fields this system reads are captured; everything else in the
// payload is ignored.

// TurnForm is the conversational-turn callback body. SpeechResult is empty
// on the initial turn (nothing has been said yet) and whenever the gather
// timed out.
type TurnForm struct {
	CallSid      string
	SpeechResult string
}

// ParseTurnForm extracts turn fields. Twilio's very first request can carry
// an empty body, so a parse failure is returned for the caller to log and
// treat as an initial turn rather than rejected.
func ParseTurnForm(r *http.Request) (TurnForm, error) {
	if err := r.ParseForm(); err != nil {
		return TurnForm{}, err
	}
	return TurnForm{
		CallSid:      strings.TrimSpace(r.PostFormValue("CallSid")),
		SpeechResult: strings.TrimSpace(r.PostFormValue("SpeechResult")),
	}, nil
}

// StatusForm is the call-status callback body.
type StatusForm struct {
	CallSid    string
	CallStatus string
}

func ParseStatusForm(r *http.Request) (StatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return StatusForm{}, err
	}
	return StatusForm{
		CallSid:    strings.TrimSpace(r.PostFormValue("CallSid")),
		CallStatus: strings.TrimSpace(r.PostFormValue("CallStatus")),
	}, nil
}

// RecordingForm is the recording-ready callback body.
type RecordingForm struct {
	CallSid      string
	RecordingURL string
}

func ParseRecordingForm(r *http.Request) (RecordingForm, error) {
	if err := r.ParseForm(); err != nil {
		return RecordingForm{}, err
	}
	return RecordingForm{
		CallSid:      strings.TrimSpace(r.PostFormValue("CallSid")),
		RecordingURL: strings.TrimSpace(r.PostFormValue("RecordingUrl")),
	}, nil
}
