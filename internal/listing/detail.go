package listing

import (
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
)

// DetailLine is one labelled value in the drawer.
type DetailLine struct {
	Label string
	Value string
}

// Section is extra drawer content contributed by a Decorator.
type Section struct {
	Title string
	Body  string
}

// Detail is the drawer content for one profile.
type Detail struct {
	Title    string
	Lines    []DetailLine
	Sections []Section
}

// Decorator adds a section to the drawer.
type Decorator interface {
	Title() string
	Render(p entity.Profile) (string, error)
}

// BuildDetail lists the fixed drawer fields followed by each decorator's
// section. A failing decorator shows its error instead of its body.
func BuildDetail(p entity.Profile, loc *time.Location, decorators ...Decorator) Detail {
	d := Detail{
		Title: "User Details",
		Lines: []DetailLine{
			{Label: "First Name", Value: p.Display(string(FieldFirstName))},
			{Label: "Last Name", Value: p.Display(string(FieldLastName))},
			{Label: "User Type", Value: p.Display(string(FieldUserType))},
			{Label: "Status", Value: p.Display(string(FieldStatus))},
			{Label: "Last Updated", Value: p.UpdatedDisplay(loc)},
		},
	}
	for _, dec := range decorators {
		body, err := dec.Render(p)
		if err != nil {
			body = fmt.Sprintf("unavailable: %v", err)
		}
		d.Sections = append(d.Sections, Section{Title: dec.Title(), Body: body})
	}
	return d
}

// QRDecorator renders the profile id, with an optional prefix such as a
// deep-link base URL, as a QR code made of half-block characters.
type QRDecorator struct {
	Prefix string
	Level  qrcode.RecoveryLevel
}

func (q QRDecorator) Title() string { return "Profile QR" }

func (q QRDecorator) Render(p entity.Profile) (string, error) {
	if p.ID == "" {
		return "", fmt.Errorf("profile has no id")
	}
	code, err := qrcode.New(q.Prefix+p.ID, q.Level)
	if err != nil {
		return "", err
	}
	return code.ToSmallString(false), nil
}
