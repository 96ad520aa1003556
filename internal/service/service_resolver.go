// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package service

import (
	"encoding/json"

	"github.com/mkamenev/memobox/models"
)

// Field-level three-way merge. Given the common ancestor snapshot and the
// two diverging sides, a field changed on only one side takes that side's
// value; a field changed on both sides to different values is a conflict.
// Without an ancestor the merge degrades to a plain diff: any differing
// field conflicts.

func syncFields(entity models.EntityType) []string {
	if entity == models.EntityCategory {
		return models.CategorySyncFields
	}
	return models.MemoSyncFields
}

// fieldValue returns a canonical string form of one business field, so that
// comparisons treat nil and empty tag sets alike.
func fieldValue(p models.RecordPayload, field string) string {
	switch p.Entity {
	case models.EntityMemo:
		if p.Memo == nil {
			return ""
		}
		switch field {
		case "title":
			return p.Memo.Title
		case "content":
			return p.Memo.Content
		case "tags":
			tags := p.Memo.Tags
			if tags == nil {
				tags = []string{}
			}
			raw, _ := json.Marshal(tags)
			return string(raw)
		case "category_id":
			if p.Memo.CategoryID == nil {
				return ""
			}
			return *p.Memo.CategoryID
		}

	case models.EntityCategory:
		if p.Category == nil {
			return ""
		}
		switch field {
		case "name":
			return p.Category.Name
		case "color":
			return p.Category.Color
		case "position":
			raw, _ := json.Marshal(p.Category.Position)
			return string(raw)
		}
	}
	return ""
}

// copyField overwrites one business field of dst with src's value.
func copyField(dst *models.RecordPayload, field string, src models.RecordPayload) {
	switch dst.Entity {
	case models.EntityMemo:
		switch field {
		case "title":
			dst.Memo.Title = src.Memo.Title
		case "content":
			dst.Memo.Content = src.Memo.Content
		case "tags":
			dst.Memo.Tags = append([]string(nil), src.Memo.Tags...)
		case "category_id":
			dst.Memo.CategoryID = cloneStringPtr(src.Memo.CategoryID)
		}

	case models.EntityCategory:
		switch field {
		case "name":
			dst.Category.Name = src.Category.Name
		case "color":
			dst.Category.Color = src.Category.Color
		case "position":
			dst.Category.Position = src.Category.Position
		}
	}
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// clonePayload deep-copies a payload so merge never aliases stored state.
func clonePayload(p models.RecordPayload) models.RecordPayload {
	switch p.Entity {
	case models.EntityMemo:
		if p.Memo == nil {
			return p
		}
		memo := *p.Memo
		memo.Tags = append([]string(nil), p.Memo.Tags...)
		memo.CategoryID = cloneStringPtr(p.Memo.CategoryID)
		return models.MemoPayload(memo)

	case models.EntityCategory:
		if p.Category == nil {
			return p
		}
		return models.CategoryPayload(*p.Category)
	}
	return p
}

// diffFields lists the business fields on which a and b disagree.
func diffFields(a, b models.RecordPayload) []string {
	var diff []string
	for _, field := range syncFields(a.Entity) {
		if fieldValue(a, field) != fieldValue(b, field) {
			diff = append(diff, field)
		}
	}
	return diff
}

// mergeThreeWay merges local into server using ancestor as the base. The
// returned payload starts from the server state, so its ledger fields
// (SyncVersion, UpdatedAt) are the server's. The second return value lists
// fields both sides changed to different values; a clean merge returns an
// empty list.
func mergeThreeWay(ancestor *models.RecordPayload, local, server models.RecordPayload) (models.RecordPayload, []string) {
	merged := clonePayload(server)

	var conflicts []string
	for _, field := range syncFields(local.Entity) {
		localValue := fieldValue(local, field)
		serverValue := fieldValue(server, field)
		if localValue == serverValue {
			continue
		}

		if ancestor == nil {
			conflicts = append(conflicts, field)
			continue
		}

		ancestorValue := fieldValue(*ancestor, field)
		switch {
		case localValue == ancestorValue:
			// Only the server side moved; keep the server value.
		case serverValue == ancestorValue:
			copyField(&merged, field, local)
		default:
			conflicts = append(conflicts, field)
		}
	}

	return merged, conflicts
}
