// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/noticeboard/internal/model"
)

func marketForm(title, category, price string) url.Values {
	return url.Values{
		"title":         {title},
		"description":   {"Barely used, collect after school."},
		"category":      {category},
		"price":         {price},
		"contact_name":  {"Parent"},
		"contact_phone": {"555-0100"},
		"contact_email": {"parent@example.com"},
	}
}

// createPost submits the market form and returns the new post id.
func (a *testApp) createPost(t *testing.T, c *http.Client, form url.Values) int64 {
	t.Helper()
	resp, body := a.post(t, c, RouteMarket+RouteSuffixNew, form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode, "create body: %s", body)

	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, RouteMarket+"/"), "Location = %q", loc)
	id, err := strconv.ParseInt(strings.TrimPrefix(loc, RouteMarket+"/"), 10, 64)
	require.NoError(t, err)
	return id
}

func TestMarketForeignDeleteForbidden(t *testing.T) {
	app := newTestApp(t)

	owner := app.client(t)
	resp, _ := app.post(t, owner, RouteRegister, url.Values{"username": {"olive"}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	id := app.createPost(t, owner, marketForm("Bike", model.MarketCategorySell, "40"))

	other := app.client(t)
	resp, _ = app.post(t, other, RouteRegister, url.Values{"username": {"pete"}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	path := fmt.Sprintf("/market/%d", id)

	resp, body := app.post(t, other, path+"/delete", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, msgForbidden+"\n", body)

	resp, _ = app.get(t, other, path+"/edit")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = app.post(t, other, path+"/edit", marketForm("Stolen", model.MarketCategorySell, ""))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	post, err := app.queries.GetMarketPost(context.Background(), id)
	require.NoError(t, err, "post must survive a foreign delete")
	assert.Equal(t, "Bike", post.Title)

	// the owner can delete it
	resp, _ = app.post(t, owner, path+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, RouteMarket, resp.Header.Get("Location"))

	_, err = app.queries.GetMarketPost(context.Background(), id)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMarketAdminCanDeleteAnyPost(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "quinn", model.RoleUser)
	app.createUser(t, "boss", model.RoleAdmin)

	owner := app.client(t)
	app.login(t, owner, "quinn")
	id := app.createPost(t, owner, marketForm("Desk", model.MarketCategoryGeneral, ""))

	admin := app.client(t)
	app.login(t, admin, "boss")
	resp, _ := app.post(t, admin, fmt.Sprintf("/market/%d/delete", id), nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	count, err := app.queries.CountMarketPosts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	events, err := app.queries.ListRecentEvents(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, model.EventCategoryMarket, events[0].Category)
}

func TestMarketAnonymousRedirectedToLogin(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/market/new"},
		{http.MethodPost, "/market/new"},
		{http.MethodGet, "/market/1/edit"},
		{http.MethodPost, "/market/1/edit"},
		{http.MethodPost, "/market/1/delete"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var resp *http.Response
			if tt.method == http.MethodGet {
				resp, _ = app.get(t, c, tt.path)
			} else {
				resp, _ = app.post(t, c, tt.path, marketForm("x", model.MarketCategoryBuy, ""))
			}
			if resp.StatusCode != http.StatusSeeOther {
				t.Errorf("status = %d; want %d", resp.StatusCode, http.StatusSeeOther)
			}
			if loc := resp.Header.Get("Location"); loc != RouteLogin {
				t.Errorf("Location = %q; want %q", loc, RouteLogin)
			}
		})
	}
}

func TestMarketCreateValidation(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "rita", model.RoleUser)
	c := app.client(t)
	app.login(t, c, "rita")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"missing title", marketForm("", model.MarketCategoryBuy, ""), msgMarketRequired},
		{"missing category", marketForm("Lamp", "", ""), msgMarketRequired},
		{"unknown category", marketForm("Lamp", "swap", ""), msgMarketBadCategory},
		{"negative price", marketForm("Lamp", model.MarketCategorySell, "-1"), msgMarketBadPrice},
		{"non-numeric price", marketForm("Lamp", model.MarketCategorySell, "cheap"), msgMarketBadPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := app.post(t, c, RouteMarket+RouteSuffixNew, tt.form)
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d; want %d", resp.StatusCode, http.StatusOK)
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}

	count, err := app.queries.CountMarketPosts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "invalid submissions must not write rows")
}

func TestMarketCreateAndEdit(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "sam", model.RoleUser)
	c := app.client(t)
	app.login(t, c, "sam")

	id := app.createPost(t, c, marketForm("Guitar", model.MarketCategorySell, "120.50"))

	post, err := app.queries.GetMarketPost(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, post.Price.Valid)
	assert.InDelta(t, 120.5, post.Price.Float64, 0.001)
	assert.Equal(t, "sam", post.Author.String)
	assert.False(t, post.UpdatedAt.Valid)

	path := fmt.Sprintf("/market/%d", id)
	_, body := app.get(t, c, path)
	assert.Contains(t, body, "Guitar")
	assert.Contains(t, body, "120.50")

	_, body = app.get(t, c, path+"/edit")
	assert.Contains(t, body, `value="120.5"`)

	// a blank price clears it
	resp, _ := app.post(t, c, path+"/edit", marketForm("Guitar (sold)", model.MarketCategoryGeneral, ""))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, path, resp.Header.Get("Location"))

	post, err = app.queries.GetMarketPost(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Guitar (sold)", post.Title)
	assert.Equal(t, model.MarketCategoryGeneral, post.Category)
	assert.False(t, post.Price.Valid)
	assert.True(t, post.UpdatedAt.Valid)
}

func TestMarketAttachmentUpload(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "tess", model.RoleUser)
	c := app.client(t)
	app.login(t, c, "tess")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range marketForm("Calculator", model.MarketCategorySell, "5") {
		require.NoError(t, mw.WriteField(k, v[0]))
	}
	fw, err := mw.CreateFormFile("attachment", "Manual Été.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := c.Post(app.server.URL+"/market/new", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode, "body: %s", body)

	id, err := strconv.ParseInt(strings.TrimPrefix(resp.Header.Get("Location"), "/market/"), 10, 64)
	require.NoError(t, err)

	post, err := app.queries.GetMarketPost(context.Background(), id)
	require.NoError(t, err)
	require.True(t, post.AttachmentPath.Valid)
	assert.True(t, strings.HasPrefix(post.AttachmentPath.String, "/uploads/"))
	assert.True(t, strings.HasSuffix(post.AttachmentPath.String, "_Manual_Ete.pdf"), post.AttachmentPath.String)

	resp, _ = app.get(t, c, post.AttachmentPath.String)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "max-age=604800")
}

func TestMarketListCategoryFilter(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "uma", model.RoleUser)
	c := app.client(t)
	app.login(t, c, "uma")

	app.createPost(t, c, marketForm("Selling textbooks", model.MarketCategorySell, ""))
	app.createPost(t, c, marketForm("Wanted: lab coat", model.MarketCategoryBuy, ""))

	_, body := app.get(t, c, "/market?category=sell")
	assert.Contains(t, body, "Selling textbooks")
	assert.NotContains(t, body, "Wanted: lab coat")

	_, body = app.get(t, c, RouteMarket)
	assert.Contains(t, body, "Selling textbooks")
	assert.Contains(t, body, "Wanted: lab coat")
}

func TestMarketShowNotFound(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/market/999", "/market/abc", "/market/0"} {
		resp, body := app.get(t, app.client(t), path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: status = %d; want %d", path, resp.StatusCode, http.StatusNotFound)
		}
		if body != msgPostNotFound+"\n" {
			t.Errorf("%s: body = %q; want %q", path, body, msgPostNotFound+"\n")
		}
	}
}
