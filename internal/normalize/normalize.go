// Package normalize turns untyped Sea API JSON into validated domain records.
//
// Every field is narrowed with one of the assertion functions in this package
// before it is used; the first violation aborts normalization and is returned
// as a *ValidationError naming the offending field.
package normalize

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/blackmichael/sea-timeline/internal/domain"
)

// Root is the path of a payload's top-level value in error messages.
const Root = "res"

// Normalizer converts post payloads. It carries the text parser used to
// derive domain.Post.TextNodes.
type Normalizer struct {
	parse domain.TextParser
}

// New returns a Normalizer that parses post text with parse.
func New(parse domain.TextParser) *Normalizer {
	return &Normalizer{parse: parse}
}

// ToFileVariant validates a file variant object.
func ToFileVariant(json any, root string) (domain.FileVariant, error) {
	var v domain.FileVariant

	obj, err := Object(json, root)
	if err != nil {
		return v, err
	}
	if v.ID, err = Integer(obj["id"], root+".id"); err != nil {
		return v, err
	}
	if v.Score, err = Number(obj["score"], root+".score"); err != nil {
		return v, err
	}
	if v.Extension, err = String(obj["extension"], root+".extension"); err != nil {
		return v, err
	}
	if v.Type, err = String(obj["type"], root+".type"); err != nil {
		return v, err
	}
	if v.Size, err = Number(obj["size"], root+".size"); err != nil {
		return v, err
	}
	if v.URL, err = String(obj["url"], root+".url"); err != nil {
		return v, err
	}
	if v.Mime, err = String(obj["mime"], root+".mime"); err != nil {
		return v, err
	}
	return v, nil
}

// ToFile validates a file object and all of its variants.
func ToFile(json any, root string) (domain.File, error) {
	var f domain.File

	obj, err := Object(json, root)
	if err != nil {
		return f, err
	}
	id, err := Integer(obj["id"], root+".id")
	if err != nil {
		return f, err
	}
	f.ID = domain.FileID(id)
	if f.Name, err = String(obj["name"], root+".name"); err != nil {
		return f, err
	}
	if f.Type, err = String(obj["type"], root+".type"); err != nil {
		return f, err
	}

	raw, err := Array(obj["variants"], root+".variants")
	if err != nil {
		return f, err
	}
	f.Variants = make([]domain.FileVariant, 0, len(raw))
	for i, item := range raw {
		v, err := ToFileVariant(item, fmt.Sprintf("%s.variants[%d]", root, i))
		if err != nil {
			return f, err
		}
		f.Variants = append(f.Variants, v)
	}
	return f, nil
}

// ToUser validates a user object. The avatar is only read when avatarFile is
// present and not null.
func ToUser(json any, root string) (domain.User, error) {
	var u domain.User

	obj, err := Object(json, root)
	if err != nil {
		return u, err
	}
	id, err := Integer(obj["id"], root+".id")
	if err != nil {
		return u, err
	}
	u.ID = domain.UserID(id)
	if u.Name, err = String(obj["name"], root+".name"); err != nil {
		return u, err
	}
	if u.ScreenName, err = String(obj["screenName"], root+".screenName"); err != nil {
		return u, err
	}
	if u.PostsCount, err = Integer(obj["postsCount"], root+".postsCount"); err != nil {
		return u, err
	}
	if u.CreatedAt, err = ISO8601DateTime(obj["createdAt"], root+".createdAt"); err != nil {
		return u, err
	}
	if u.UpdatedAt, err = ISO8601DateTime(obj["updatedAt"], root+".updatedAt"); err != nil {
		return u, err
	}

	if raw := obj["avatarFile"]; raw != nil {
		avatar, err := ToFile(raw, root+".avatarFile")
		if err != nil {
			return u, err
		}
		u.AvatarFile = &avatar
	}
	return u, nil
}

// ToPost validates a post object with its embedded author. The returned
// post references the author by id only; callers must cache both.
func (n *Normalizer) ToPost(json any, root string) (domain.PostEntry, error) {
	var p domain.Post

	obj, err := Object(json, root)
	if err != nil {
		return domain.PostEntry{}, err
	}
	id, err := Integer(obj["id"], root+".id")
	if err != nil {
		return domain.PostEntry{}, err
	}
	p.ID = domain.PostID(id)
	if p.Text, err = String(obj["text"], root+".text"); err != nil {
		return domain.PostEntry{}, err
	}
	p.TextNodes = n.parse(p.Text)

	author, err := ToUser(obj["user"], root+".user")
	if err != nil {
		return domain.PostEntry{}, err
	}
	p.Author = author.ID

	if p.CreatedAt, err = ISO8601DateTime(obj["createdAt"], root+".createdAt"); err != nil {
		return domain.PostEntry{}, err
	}
	if p.UpdatedAt, err = ISO8601DateTime(obj["updatedAt"], root+".updatedAt"); err != nil {
		return domain.PostEntry{}, err
	}

	p.Files = []domain.File{}
	if rawFiles := obj["files"]; rawFiles != nil {
		files, err := Array(rawFiles, root+".files")
		if err != nil {
			return domain.PostEntry{}, err
		}
		for i, item := range files {
			f, err := ToFile(item, fmt.Sprintf("%s.files[%d]", root, i))
			if err != nil {
				return domain.PostEntry{}, err
			}
			p.Files = append(p.Files, f)
		}
	}

	if p.Via, err = toVia(obj["application"], root+".application"); err != nil {
		return domain.PostEntry{}, err
	}

	return domain.PostEntry{Post: p, Author: author}, nil
}

func toVia(json any, root string) (domain.Via, error) {
	var via domain.Via

	app, err := Object(json, root)
	if err != nil {
		return via, err
	}
	if via.Name, err = String(app["name"], root+".name"); err != nil {
		return via, err
	}
	if raw := app["isAutomated"]; raw != nil {
		if via.IsBot, err = Bool(raw, root+".isAutomated"); err != nil {
			return via, err
		}
	}
	return via, nil
}

// ToPostList validates an array of posts. Users are returned once per id;
// when a batch holds several versions of the same user the last one wins.
// Any invalid entry fails the whole batch.
func (n *Normalizer) ToPostList(json any, root string) (domain.PostList, error) {
	raw, err := Array(json, root)
	if err != nil {
		return domain.PostList{}, err
	}

	posts := make([]domain.Post, 0, len(raw))
	users := make(map[domain.UserID]domain.User)
	var order []domain.UserID
	for i, item := range raw {
		entry, err := n.ToPost(item, fmt.Sprintf("%s[%d]", root, i))
		if err != nil {
			return domain.PostList{}, err
		}
		posts = append(posts, entry.Post)
		if _, seen := users[entry.Author.ID]; !seen {
			order = append(order, entry.Author.ID)
		}
		users[entry.Author.ID] = entry.Author
	}

	return domain.PostList{
		Posts: posts,
		Users: lo.Map(order, func(id domain.UserID, _ int) domain.User {
			return users[id]
		}),
	}, nil
}
