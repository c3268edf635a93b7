package beatport

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

const (
	// SiteURL is the public web front of the catalog.
	SiteURL = "https://beatport.com"
	// VAArtistThreshold is the artist count from which a release counts as Various Artists.
	VAArtistThreshold = 4
	// VAArtistName replaces the artist list of Various Artists releases.
	VAArtistName = "Various Artists"
	// OriginalMixName is the mix name of the unmodified version of a track.
	OriginalMixName = "Original Mix"
	// DateFormat is the layout of publish_date.
	DateFormat = "2006-01-02"
)

type Artist struct {
	ID   string
	Name string
}

func (a Artist) String() string {
	return fmt.Sprintf("<BeatportArtist: %s>", a.Name)
}

type Label struct {
	ID   string
	Name string
}

func (l Label) String() string {
	return fmt.Sprintf("<BeatportLabel: %s>", l.Name)
}

// ShallowRelease is a release without its track list, as embedded in track
// payloads and search hits. Use Client.GetRelease to obtain a full Release.
type ShallowRelease struct {
	ID            string
	Name          string
	Artists       []Artist
	Type          string
	Label         *Label
	CatalogNumber string
	URL           string
	PublishDate   time.Time
}

// Release is a fully fetched release. Tracks is populated once by Client.GetRelease.
type Release struct {
	ShallowRelease
	Tracks []*Track
}

func (r *ShallowRelease) String() string {
	artists := VAArtistName
	if len(r.Artists) < VAArtistThreshold {
		artists = joinArtistNames(r.Artists)
	}
	return fmt.Sprintf("<BeatportRelease: %s - %s (%s)>", artists, r.Name, r.CatalogNumber)
}

type Track struct {
	ID              string
	Name            string
	Artists         []Artist
	Length          time.Duration
	Number          int
	InitialKey      string
	URL             string
	BPM             int
	Genre           string
	ImageURL        string
	ImageDynamicURL string
	MixName         string
	Release         *ShallowRelease
	Remixers        []Artist
}

func (t *Track) String() string {
	return fmt.Sprintf("<BeatportTrack: %s - %s (%s)>", joinArtistNames(t.Artists), t.Name, t.MixName)
}

type Account struct {
	ID       string
	Email    string
	Username string
}

func (a *Account) String() string {
	return fmt.Sprintf("<BeatportMyAccount: %s <%s>>", a.Username, a.Email)
}

func DecodeArtist(data gjson.Result) (Artist, error) {
	id, name, err := requireIDName("artist", data)
	if err != nil {
		return Artist{}, err
	}
	return Artist{ID: id, Name: name}, nil
}

func DecodeLabel(data gjson.Result) (Label, error) {
	id, name, err := requireIDName("label", data)
	if err != nil {
		return Label{}, err
	}
	return Label{ID: id, Name: name}, nil
}

// DecodeRelease decodes a release detail or search hit. Tracks is left empty.
func DecodeRelease(data gjson.Result) (*Release, error) {
	shallow, err := DecodeShallowRelease(data)
	if err != nil {
		return nil, err
	}
	return &Release{ShallowRelease: *shallow}, nil
}

func DecodeShallowRelease(data gjson.Result) (*ShallowRelease, error) {
	id, name, err := requireIDName("release", data)
	if err != nil {
		return nil, err
	}

	artists, err := decodeArtists(data.Get("artists"))
	if err != nil {
		return nil, err
	}

	release := &ShallowRelease{
		ID:            id,
		Name:          name,
		Artists:       artists,
		Type:          data.Get("type.name").String(),
		CatalogNumber: data.Get("catalog_number").String(),
	}

	if label := data.Get("label"); present(label) {
		decoded, err := DecodeLabel(label)
		if err != nil {
			return nil, err
		}
		release.Label = &decoded
	}

	if slug := data.Get("slug"); present(slug) {
		release.URL = fmt.Sprintf("%s/release/%s/%s", SiteURL, slug.String(), id)
	}

	if date := data.Get("publish_date"); present(date) {
		if parsed, err := time.Parse(DateFormat, date.String()); err == nil {
			release.PublishDate = parsed
		}
	}

	return release, nil
}

func DecodeTrack(data gjson.Result) (*Track, error) {
	id, name, err := requireIDName("track", data)
	if err != nil {
		return nil, err
	}

	artists, err := decodeArtists(data.Get("artists"))
	if err != nil {
		return nil, err
	}

	track := &Track{
		ID:       id,
		Name:     name,
		Artists:  artists,
		Length:   decodeLength(data),
		Number:   int(data.Get("number").Int()),
		BPM:      int(data.Get("bpm").Int()),
		MixName:  data.Get("mix_name").String(),
		Remixers: decodeRemixers(data.Get("remixers")),
	}

	if key := data.Get("key.name").String(); key != "" {
		track.InitialKey = NormalizeKey(key)
	}

	if sub := data.Get("sub_genre"); truthy(sub) {
		track.Genre = sub.Get("name").String()
	} else if genre := data.Get("genre"); truthy(genre) {
		track.Genre = genre.Get("name").String()
	}

	if release := data.Get("release"); present(release) {
		shallow, err := DecodeShallowRelease(release)
		if err != nil {
			return nil, err
		}
		track.Release = shallow
		track.ImageURL = release.Get("image.uri").String()
		track.ImageDynamicURL = release.Get("image.dynamic_uri").String()
	}

	if slug := data.Get("slug"); present(slug) {
		track.URL = fmt.Sprintf("%s/track/%s/%s", SiteURL, slug.String(), id)
	}

	return track, nil
}

func DecodeAccount(data gjson.Result) (*Account, error) {
	for _, field := range []string{"id", "email", "username"} {
		if !present(data.Get(field)) {
			return nil, &DecodeError{Entity: "account", Field: field}
		}
	}
	return &Account{
		ID:       data.Get("id").String(),
		Email:    data.Get("email").String(),
		Username: data.Get("username").String(),
	}, nil
}

func requireIDName(entity string, data gjson.Result) (id, name string, err error) {
	if !data.IsObject() {
		return "", "", &DecodeError{Entity: entity, Field: "id"}
	}
	idValue := data.Get("id")
	if !present(idValue) {
		return "", "", &DecodeError{Entity: entity, Field: "id"}
	}
	nameValue := data.Get("name")
	if !present(nameValue) {
		return "", "", &DecodeError{Entity: entity, Field: "name"}
	}
	return idValue.String(), nameValue.String(), nil
}

// decodeArtists skips null entries of an artist array.
func decodeArtists(list gjson.Result) ([]Artist, error) {
	entries := lo.Filter(list.Array(), func(r gjson.Result, _ int) bool {
		return present(r)
	})
	artists := make([]Artist, 0, len(entries))
	for _, entry := range entries {
		artist, err := DecodeArtist(entry)
		if err != nil {
			return nil, err
		}
		artists = append(artists, artist)
	}
	return artists, nil
}

func decodeRemixers(list gjson.Result) []Artist {
	return lo.FilterMap(list.Array(), func(r gjson.Result, _ int) (Artist, bool) {
		artist, err := DecodeArtist(r)
		return artist, err == nil
	})
}

// decodeLength prefers length_ms and falls back to the "m:s" display string.
func decodeLength(data gjson.Result) time.Duration {
	if ms := data.Get("length_ms").Int(); ms != 0 {
		return time.Duration(ms) * time.Millisecond
	}

	display := data.Get("length").String()
	if display == "" {
		return 0
	}
	parts := strings.Split(display, ":")
	if len(parts) != 2 {
		return 0
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	seconds, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
}

// truthy reports a non-empty nested object.
func truthy(r gjson.Result) bool {
	return r.IsObject() && len(r.Map()) > 0
}

func joinArtistNames(artists []Artist) string {
	return strings.Join(lo.Map(artists, func(a Artist, _ int) string { return a.Name }), ", ")
}
