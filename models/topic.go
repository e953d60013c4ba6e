package models

import "strings"

type Topic string

const (
	TopicPolitics Topic = "Politics"
	TopicHealth   Topic = "Health"
	TopicSport    Topic = "Sport"
	TopicTech     Topic = "Tech"
)

// DefaultTopics is the taxonomy used when none is configured.
var DefaultTopics = []Topic{TopicPolitics, TopicHealth, TopicSport, TopicTech}

// Taxonomy is the closed set of topics a post may belong to.
type Taxonomy struct {
	ordered []Topic
	set     map[Topic]struct{}
}

func NewTaxonomy(topics ...Topic) Taxonomy {
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	t := Taxonomy{set: make(map[Topic]struct{}, len(topics))}
	for _, topic := range topics {
		if _, dup := t.set[topic]; dup || topic == "" {
			continue
		}
		t.set[topic] = struct{}{}
		t.ordered = append(t.ordered, topic)
	}
	return t
}

// ParseTaxonomy builds a taxonomy from a comma separated list.
func ParseTaxonomy(csv string) Taxonomy {
	var topics []Topic
	for _, part := range strings.Split(csv, ",") {
		if name := strings.TrimSpace(part); name != "" {
			topics = append(topics, Topic(name))
		}
	}
	return NewTaxonomy(topics...)
}

func (t Taxonomy) Contains(topic Topic) bool {
	_, ok := t.set[topic]
	return ok
}

func (t Taxonomy) Topics() []Topic {
	return append([]Topic{}, t.ordered...)
}
