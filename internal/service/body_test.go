package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gyftr-sheet-sync/internal/model"
)

func TestHTMLBodyNil(t *testing.T) {
	assert.Empty(t, HTMLBody(nil))
}

func TestHTMLBodySinglePart(t *testing.T) {
	assert.Equal(t, "<p>hi</p>", HTMLBody(&model.BodyPart{MimeType: "text/html", Data: "<p>hi</p>"}))
	assert.Empty(t, HTMLBody(&model.BodyPart{MimeType: "text/plain", Data: "hi"}))
}

func TestHTMLBodyPrefersHTMLOverPlain(t *testing.T) {
	part := &model.BodyPart{
		MimeType: "multipart/alternative",
		Parts: []*model.BodyPart{
			{MimeType: "text/plain", Data: "plain"},
			{MimeType: "text/html", Data: "<p>rich</p>"},
		},
	}
	assert.Equal(t, "<p>rich</p>", HTMLBody(part))
}

func TestHTMLBodyNestedMultipart(t *testing.T) {
	part := &model.BodyPart{
		MimeType: "multipart/mixed",
		Parts: []*model.BodyPart{
			{MimeType: "application/pdf", Data: "binary"},
			{
				MimeType: "multipart/alternative",
				Parts: []*model.BodyPart{
					{MimeType: "text/plain", Data: "plain"},
					{MimeType: "text/html", Data: "<p>nested</p>"},
				},
			},
		},
	}
	assert.Equal(t, "<p>nested</p>", HTMLBody(part))
}

func TestHTMLBodyNoHTMLAnywhere(t *testing.T) {
	part := &model.BodyPart{
		MimeType: "multipart/mixed",
		Parts: []*model.BodyPart{
			{MimeType: "text/plain", Data: "plain"},
			{MimeType: "image/png", Data: "img"},
		},
	}
	assert.Empty(t, HTMLBody(part))
}

func TestHTMLBodyDepthCap(t *testing.T) {
	leaf := &model.BodyPart{MimeType: "text/html", Data: "<p>deep</p>"}
	part := &model.BodyPart{MimeType: "multipart/mixed", Parts: []*model.BodyPart{leaf}}
	for i := 0; i < 40; i++ {
		part = &model.BodyPart{MimeType: "multipart/mixed", Parts: []*model.BodyPart{part}}
	}
	assert.Empty(t, HTMLBody(part))
}
