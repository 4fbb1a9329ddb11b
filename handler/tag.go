package handler

// Tag is the message type named by a message's leading atom.
type Tag uint8

const (
	TagUnknown Tag = iota
	TagSee
	TagHear
	TagSenseBody
	TagPlayerType
	TagPlayerParam
	TagServerParam
	TagInit
	TagReconnect
	TagOk
	TagError
	TagWarning
)

var tagNames = [...]string{
	TagUnknown:     "unknown",
	TagSee:         "see",
	TagHear:        "hear",
	TagSenseBody:   "sense_body",
	TagPlayerType:  "player_type",
	TagPlayerParam: "player_param",
	TagServerParam: "server_param",
	TagInit:        "init",
	TagReconnect:   "reconnect",
	TagOk:          "ok",
	TagError:       "error",
	TagWarning:     "warning",
}

var tagsByName = func() map[string]Tag {
	m := make(map[string]Tag, len(tagNames))
	for t, name := range tagNames {
		if Tag(t) != TagUnknown {
			m[name] = Tag(t)
		}
	}
	return m
}()

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return tagNames[TagUnknown]
}

// ParseTag looks up a message type by name.
func ParseTag(name string) (Tag, bool) {
	t, ok := tagsByName[name]
	return t, ok
}
