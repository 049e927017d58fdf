package telephony

import (
	"bytes"
	"encoding/xml"
)

// VoiceResponse is a minimal Twilio Markup Language builder. It
// intentionally avoids any provider SDK dependency and only includes the
// verbs this system emits: Play, Say, Gather, Hangup.
//
// Verbs render in the order they are appended; Twilio executes them
// top to bottom.
type VoiceResponse struct {
	verbs []any
}

type twimlDocument struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlPlay struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlGather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	SpeechModel   string   `xml:"speechModel,attr,omitempty"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	Timeout       int      `xml:"timeout,attr,omitempty"`
}

// Play appends a verb that plays audio fetched from url.
func (r *VoiceResponse) Play(url string) {
	r.verbs = append(r.verbs, twimlPlay{URL: url})
}

// Say appends a verb spoken with Twilio's built-in voice.
func (r *VoiceResponse) Say(text string) {
	r.verbs = append(r.verbs, twimlSay{Text: text})
}

// Hangup appends a verb that ends the call.
func (r *VoiceResponse) Hangup() {
	r.verbs = append(r.verbs, twimlHangup{})
}

// GatherOptions configures a speech-listening verb. Zero values get the
// conversational defaults used on every turn.
type GatherOptions struct {
	Action  string
	Timeout int
}

// GatherSpeech appends a verb that listens for caller speech and posts the
// transcription back to opts.Action. If nothing is said within the timeout
// Twilio falls through to the verbs after the Gather.
func (r *VoiceResponse) GatherSpeech(opts GatherOptions) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5
	}
	r.verbs = append(r.verbs, twimlGather{
		Input:         "speech",
		SpeechTimeout: "auto",
		SpeechModel:   "experimental_conversations",
		Action:        opts.Action,
		Method:        "POST",
		Timeout:       timeout,
	})
}

// Render serializes the response to an XML document.
func (r *VoiceResponse) Render() (string, error) {
	doc := twimlDocument{Verbs: r.verbs}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
