package hn

import "github.com/tidwall/gjson"

// StoryIDs extracts the story id list from a Firebase stream payload.
// The payload shape is not assumed beyond what is needed: put/patch
// frames look like {"path": "/", "data": [id, ...]}, and a bare
// top-level array is accepted too. A null or absent data field (the
// keep-alive shape) yields nil.
func StoryIDs(payload []byte) []int {
	if !gjson.ValidBytes(payload) {
		return nil
	}
	root := gjson.ParseBytes(payload)

	list := root.Get("data")
	if !list.Exists() && root.IsArray() {
		list = root
	}
	if !list.IsArray() {
		return nil
	}

	var ids []int
	list.ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.Number {
			ids = append(ids, int(v.Int()))
		}
		return true
	})
	return ids
}
