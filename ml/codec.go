package ml

import (
	"errors"
	"fmt"
	"sort"
)

// LabelCodec maps symbolic class labels to the classifier's numeric indices.
// Fit assigns indices in sorted lexical order, so repeated training runs over
// the same label set always produce the same encoding.
type LabelCodec struct {
	Labels []string `json:"labels"`

	index map[string]int
}

func (c *LabelCodec) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.New("labels is empty")
	}
	seen := make(map[string]bool)
	distinct := make([]string, 0)
	for _, label := range labels {
		if label == "" {
			return errors.New("empty label")
		}
		if !seen[label] {
			seen[label] = true
			distinct = append(distinct, label)
		}
	}
	sort.Strings(distinct)
	c.Labels = distinct
	c.index = nil
	return nil
}

func (c *LabelCodec) Encode(label string) (int, error) {
	if c.index == nil {
		c.index = make(map[string]int, len(c.Labels))
		for i, l := range c.Labels {
			c.index[l] = i
		}
	}
	idx, ok := c.index[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return idx, nil
}

func (c *LabelCodec) Decode(idx int) (string, error) {
	if idx < 0 || idx >= len(c.Labels) {
		return "", fmt.Errorf("%w: %d", ErrUnknownIndex, idx)
	}
	return c.Labels[idx], nil
}

func (c *LabelCodec) ClassCount() int {
	return len(c.Labels)
}
