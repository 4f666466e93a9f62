// Package apitest is a fiber implementation of the community feed API backed
// by gorm on sqlite. Tests reach it through Transport; cmd/agora-devapi
// serves it on a port.
package apitest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"agora/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	errNotFound      = errors.New("record not found")
	errForbidden     = errors.New("not allowed")
	errForeignParent = errors.New("parent comment belongs to another post")
	errNameTaken     = errors.New("username is taken")
)

// account is a password holder or a claimed guest name.
type account struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	IsStaff      bool
	Guest        bool
	PasswordHash []byte
}

type post struct {
	ID        int64     `gorm:"primaryKey"`
	Author    string    `gorm:"index;not null"`
	Content   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index"`
}

type comment struct {
	ID        int64  `gorm:"primaryKey"`
	PostID    int64  `gorm:"index;not null"`
	ParentID  *int64 `gorm:"index"`
	Author    string `gorm:"index;not null"`
	Content   string `gorm:"not null"`
	CreatedAt time.Time
}

const (
	targetPost    = "post"
	targetComment = "comment"
)

// like is one user's like on a post or a comment.
type like struct {
	ID         int64  `gorm:"primaryKey"`
	TargetKind string `gorm:"uniqueIndex:idx_likes_target_user;not null"`
	TargetID   int64  `gorm:"uniqueIndex:idx_likes_target_user;not null"`
	Username   string `gorm:"uniqueIndex:idx_likes_target_user;not null"`
}

type store struct {
	db    *gorm.DB
	clock func() time.Time
}

// newStore opens dsn (":memory:" when empty) and migrates the schema.
func newStore(dsn string, clock func() time.Time) (*store, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	if clock == nil {
		clock = time.Now
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// each connection to :memory: opens its own empty database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&account{}, &post{}, &comment{}, &like{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &store{db: db, clock: clock}, nil
}

func (s *store) close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func findAccount(db *gorm.DB, username string) (*account, error) {
	var acc account
	err := db.Where("username = ?", username).Take(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// account returns the named account, or nil when there is none.
func (s *store) account(username string) (*account, error) {
	return findAccount(s.db, username)
}

// savePasswordAccount creates or replaces a password account.
func (s *store) savePasswordAccount(username string, hash []byte, staff bool) error {
	acc := account{Username: username, IsStaff: staff, PasswordHash: hash}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_staff", "guest", "password_hash"}),
	}).Create(&acc).Error
}

// claimGuest returns the guest account for username, creating it on first
// claim. Names held by password accounts are refused.
func (s *store) claimGuest(username string) (*account, error) {
	var out *account
	err := s.db.Transaction(func(tx *gorm.DB) error {
		acc, err := findAccount(tx, username)
		if err != nil {
			return err
		}
		if acc != nil && !acc.Guest {
			return errNameTaken
		}
		if acc == nil {
			acc = &account{Username: username, Guest: true}
			if err := tx.Create(acc).Error; err != nil {
				return err
			}
		}
		out = acc
		return nil
	})
	return out, err
}

func (s *store) postCount() (int64, error) {
	var n int64
	err := s.db.Model(&post{}).Count(&n).Error
	return n, err
}

func (s *store) createPost(author, content string) (models.Post, error) {
	p := post{Author: author, Content: content, CreatedAt: s.clock()}
	if err := s.db.Create(&p).Error; err != nil {
		return models.Post{}, err
	}
	return postView(p, 0, false, 0), nil
}

// listPosts returns every post, newest first, as seen by viewer.
func (s *store) listPosts(viewer string) ([]models.Post, error) {
	var rows []post
	if err := s.db.Order("created_at desc, id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return postViews(s.db, rows, viewer)
}

// getPost returns one post with its comment tree.
func (s *store) getPost(id int64, viewer string) (*models.Post, error) {
	var row post
	err := s.db.Take(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}

	views, err := postViews(s.db, []post{row}, viewer)
	if err != nil {
		return nil, err
	}
	view := views[0]
	view.Comments, err = commentTree(s.db, id, viewer)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// deletePost removes a post with its comments and every like on either.
func (s *store) deletePost(id int64, username string, isStaff bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var row post
		err := tx.Take(&row, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errNotFound
		}
		if err != nil {
			return err
		}
		if row.Author != username && !isStaff {
			return errForbidden
		}

		var commentIDs []int64
		if err := tx.Model(&comment{}).Where("post_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("target_kind = ? AND target_id IN ?", targetComment, commentIDs).Delete(&like{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("target_kind = ? AND target_id = ?", targetPost, id).Delete(&like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post{}, id).Error
	})
}

// createComment adds a comment to postID; parent, when set, must be a
// comment on the same post.
func (s *store) createComment(postID int64, parent *int64, author, content string) (models.Comment, error) {
	var out models.Comment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return errNotFound
		}
		if parent != nil {
			var p comment
			err := tx.Take(&p, *parent).Error
			if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && p.PostID != postID) {
				return errForeignParent
			}
			if err != nil {
				return err
			}
		}

		c := comment{PostID: postID, ParentID: parent, Author: author, Content: content, CreatedAt: s.clock()}
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		out = commentView(c, 0, false)
		return nil
	})
	return out, err
}

// toggleLike flips username's like on a post or comment and returns the
// new count and state.
func (s *store) toggleLike(kind string, id int64, username string) (int, bool, error) {
	var count int64
	var liked bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		target := any(&post{})
		if kind == targetComment {
			target = &comment{}
		}
		var n int64
		if err := tx.Model(target).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return errNotFound
		}

		res := tx.Where("target_kind = ? AND target_id = ? AND username = ?", kind, id, username).Delete(&like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(&like{TargetKind: kind, TargetID: id, Username: username}).Error; err != nil {
				return err
			}
			liked = true
		}
		return tx.Model(&like{}).Where("target_kind = ? AND target_id = ?", kind, id).Count(&count).Error
	})
	return int(count), liked, err
}

type userTotal struct {
	Username string
	N        int
}

// leaderboard ranks every account and author by likes received.
func (s *store) leaderboard() ([]models.LeaderboardEntry, error) {
	var names []string
	if err := s.db.Model(&account{}).Pluck("username", &names).Error; err != nil {
		return nil, err
	}

	var postLikes, commentLikes []userTotal
	err := s.db.Table("likes").
		Select("posts.author AS username, COUNT(*) AS n").
		Joins("JOIN posts ON posts.id = likes.target_id").
		Where("likes.target_kind = ?", targetPost).
		Group("posts.author").
		Scan(&postLikes).Error
	if err != nil {
		return nil, err
	}
	err = s.db.Table("likes").
		Select("comments.author AS username, COUNT(*) AS n").
		Joins("JOIN comments ON comments.id = likes.target_id").
		Where("likes.target_kind = ?", targetComment).
		Group("comments.author").
		Scan(&commentLikes).Error
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*models.LeaderboardEntry)
	entry := func(username string) *models.LeaderboardEntry {
		e, ok := byUser[username]
		if !ok {
			e = &models.LeaderboardEntry{Username: username}
			byUser[username] = e
		}
		return e
	}
	for _, name := range names {
		entry(name)
	}
	for _, t := range postLikes {
		entry(t.Username).PostLikes += t.N
	}
	for _, t := range commentLikes {
		entry(t.Username).CommentLikes += t.N
	}

	out := make([]models.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		e.Karma = e.PostLikes + e.CommentLikes
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Karma != out[j].Karma {
			return out[i].Karma > out[j].Karma
		}
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return out, nil
}

type idTotal struct {
	ID int64
	N  int
}

// countBy groups model rows matching where by column.
func countBy(db *gorm.DB, model any, column string, ids []int64, where string, args ...any) (map[int64]int, error) {
	out := make(map[int64]int)
	if len(ids) == 0 {
		return out, nil
	}
	var rows []idTotal
	q := db.Model(model).
		Select(column+" AS id, COUNT(*) AS n").
		Where(column+" IN ?", ids)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Group(column).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.N
	}
	return out, nil
}

func likedBy(db *gorm.DB, kind string, ids []int64, viewer string) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if viewer == "" || len(ids) == 0 {
		return out, nil
	}
	var liked []int64
	err := db.Model(&like{}).
		Where("target_kind = ? AND username = ? AND target_id IN ?", kind, viewer, ids).
		Pluck("target_id", &liked).Error
	if err != nil {
		return nil, err
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

func postViews(db *gorm.DB, rows []post, viewer string) ([]models.Post, error) {
	ids := make([]int64, len(rows))
	for i, p := range rows {
		ids[i] = p.ID
	}
	likes, err := countBy(db, &like{}, "target_id", ids, "target_kind = ?", targetPost)
	if err != nil {
		return nil, err
	}
	liked, err := likedBy(db, targetPost, ids, viewer)
	if err != nil {
		return nil, err
	}
	comments, err := countBy(db, &comment{}, "post_id", ids, "")
	if err != nil {
		return nil, err
	}

	out := make([]models.Post, 0, len(rows))
	for _, p := range rows {
		out = append(out, postView(p, likes[p.ID], liked[p.ID], comments[p.ID]))
	}
	return out, nil
}

func postView(p post, likes int, liked bool, comments int) models.Post {
	return models.Post{
		ID:            p.ID,
		Author:        models.AuthorSummary{Username: p.Author},
		Content:       p.Content,
		CreatedAt:     p.CreatedAt,
		LikesCount:    likes,
		IsLiked:       liked,
		CommentsCount: comments,
	}
}

func commentView(c comment, likes int, liked bool) models.Comment {
	return models.Comment{
		ID:         c.ID,
		Author:     models.AuthorSummary{Username: c.Author},
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
		LikesCount: likes,
		IsLiked:    liked,
		Parent:     c.ParentID,
		Replies:    []models.Comment{},
	}
}

// commentTree loads a post's comments in creation order and nests them
// under their parents.
func commentTree(db *gorm.DB, postID int64, viewer string) ([]models.Comment, error) {
	var rows []comment
	if err := db.Where("post_id = ?", postID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i, c := range rows {
		ids[i] = c.ID
	}
	likes, err := countBy(db, &like{}, "target_id", ids, "target_kind = ?", targetComment)
	if err != nil {
		return nil, err
	}
	liked, err := likedBy(db, targetComment, ids, viewer)
	if err != nil {
		return nil, err
	}

	children := make(map[int64][]comment)
	var roots []comment
	for _, c := range rows {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	var build func(c comment) models.Comment
	build = func(c comment) models.Comment {
		v := commentView(c, likes[c.ID], liked[c.ID])
		for _, child := range children[c.ID] {
			v.Replies = append(v.Replies, build(child))
		}
		return v
	}

	out := make([]models.Comment, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out, nil
}
