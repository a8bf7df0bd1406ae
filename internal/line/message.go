package line

import "encoding/json"

// Message is an outbound chat message. Concrete kinds are TextMessage and
// FlexMessage; each serializes itself with the platform's "type" tag so
// callers build typed trees instead of raw maps.
type Message interface {
	message()
}

// TextMessage is a plain text message.
type TextMessage struct {
	Text string
}

func (TextMessage) message() {}

// MarshalJSON emits the platform wire shape.
func (m TextMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: "text", Text: m.Text})
}

// FlexMessage is a rich card message rendered as a styled layout.
type FlexMessage struct {
	AltText  string
	Contents Container
}

func (FlexMessage) message() {}

func (m FlexMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string    `json:"type"`
		AltText  string    `json:"altText"`
		Contents Container `json:"contents"`
	}{Type: "flex", AltText: m.AltText, Contents: m.Contents})
}

// Container is the top-level flex structure: a single Bubble or a Carousel.
type Container interface {
	container()
}

// Bubble is one card.
type Bubble struct {
	Header *Box
	Hero   *Image
	Body   *Box
	Footer *Box
}

func (Bubble) container() {}

func (b Bubble) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Header *Box   `json:"header,omitempty"`
		Hero   *Image `json:"hero,omitempty"`
		Body   *Box   `json:"body,omitempty"`
		Footer *Box   `json:"footer,omitempty"`
	}{Type: "bubble", Header: b.Header, Hero: b.Hero, Body: b.Body, Footer: b.Footer})
}

// Carousel is a horizontally scrollable list of bubbles.
type Carousel struct {
	Bubbles []Bubble
}

func (Carousel) container() {}

func (c Carousel) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string   `json:"type"`
		Contents []Bubble `json:"contents"`
	}{Type: "carousel", Contents: c.Bubbles})
}

// Component is a node inside a flex layout tree.
type Component interface {
	component()
}

// Box lays out child components vertically, horizontally or as a baseline row.
type Box struct {
	Layout          string
	Contents        []Component
	Spacing         string
	Margin          string
	PaddingAll      string
	BackgroundColor string
	CornerRadius    string
}

func (*Box) component() {}

func (b *Box) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type            string      `json:"type"`
		Layout          string      `json:"layout"`
		Contents        []Component `json:"contents"`
		Spacing         string      `json:"spacing,omitempty"`
		Margin          string      `json:"margin,omitempty"`
		PaddingAll      string      `json:"paddingAll,omitempty"`
		BackgroundColor string      `json:"backgroundColor,omitempty"`
		CornerRadius    string      `json:"cornerRadius,omitempty"`
	}{
		Type:            "box",
		Layout:          b.Layout,
		Contents:        b.Contents,
		Spacing:         b.Spacing,
		Margin:          b.Margin,
		PaddingAll:      b.PaddingAll,
		BackgroundColor: b.BackgroundColor,
		CornerRadius:    b.CornerRadius,
	})
}

// Text is a text node.
type Text struct {
	Text   string
	Weight string
	Color  string
	Size   string
	Align  string
	Margin string
	Wrap   bool
	Flex   int
}

func (*Text) component() {}

func (t *Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Text   string `json:"text"`
		Weight string `json:"weight,omitempty"`
		Color  string `json:"color,omitempty"`
		Size   string `json:"size,omitempty"`
		Align  string `json:"align,omitempty"`
		Margin string `json:"margin,omitempty"`
		Wrap   bool   `json:"wrap,omitempty"`
		Flex   int    `json:"flex,omitempty"`
	}{
		Type:   "text",
		Text:   t.Text,
		Weight: t.Weight,
		Color:  t.Color,
		Size:   t.Size,
		Align:  t.Align,
		Margin: t.Margin,
		Wrap:   t.Wrap,
		Flex:   t.Flex,
	})
}

// Separator draws a divider line.
type Separator struct {
	Margin string
}

func (*Separator) component() {}

func (s *Separator) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Margin string `json:"margin,omitempty"`
	}{Type: "separator", Margin: s.Margin})
}

// Image is an image node, also usable as a bubble hero.
type Image struct {
	URL         string
	Size        string
	AspectRatio string
	AspectMode  string
}

func (*Image) component() {}

func (i *Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string `json:"type"`
		URL         string `json:"url"`
		Size        string `json:"size,omitempty"`
		AspectRatio string `json:"aspectRatio,omitempty"`
		AspectMode  string `json:"aspectMode,omitempty"`
	}{Type: "image", URL: i.URL, Size: i.Size, AspectRatio: i.AspectRatio, AspectMode: i.AspectMode})
}

// Button triggers an action.
type Button struct {
	Style  string
	Color  string
	Height string
	Action Action
}

func (*Button) component() {}

func (b *Button) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Style  string `json:"style,omitempty"`
		Color  string `json:"color,omitempty"`
		Height string `json:"height,omitempty"`
		Action Action `json:"action"`
	}{Type: "button", Style: b.Style, Color: b.Color, Height: b.Height, Action: b.Action})
}

// Action is what happens when a button is tapped.
type Action interface {
	action()
}

// URIAction opens a link.
type URIAction struct {
	Label string
	URI   string
}

func (URIAction) action() {}

func (a URIAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Label string `json:"label"`
		URI   string `json:"uri"`
	}{Type: "uri", Label: a.Label, URI: a.URI})
}

// PostbackAction posts an opaque data payload back to the webhook.
type PostbackAction struct {
	Label       string
	Data        string
	DisplayText string
}

func (PostbackAction) action() {}

func (a PostbackAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string `json:"type"`
		Label       string `json:"label"`
		Data        string `json:"data"`
		DisplayText string `json:"displayText,omitempty"`
	}{Type: "postback", Label: a.Label, Data: a.Data, DisplayText: a.DisplayText})
}

// MessageAction sends a text message on the user's behalf.
type MessageAction struct {
	Label string
	Text  string
}

func (MessageAction) action() {}

func (a MessageAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Label string `json:"label"`
		Text  string `json:"text"`
	}{Type: "message", Label: a.Label, Text: a.Text})
}
