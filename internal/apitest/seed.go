package apitest

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// SeedOptions shapes generated demo content.
type SeedOptions struct {
	Users    int
	Posts    int
	MaxDepth int
	// Seed makes generation deterministic when non-zero.
	Seed int64
}

type seeder struct {
	tx    *gorm.DB
	faker *gofakeit.Faker
	r     *rand.Rand
	names []string
}

// Seed fills the database with guest users, posts, nested comments, and likes.
func (s *Server) Seed(opts SeedOptions) error {
	if opts.Users <= 0 {
		opts.Users = 6
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 3
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	now := s.store.clock()

	return s.store.db.Transaction(func(tx *gorm.DB) error {
		sd := &seeder{
			tx:    tx,
			faker: gofakeit.New(opts.Seed),
			r:     rand.New(rand.NewSource(opts.Seed)),
		}
		if err := sd.users(opts.Users); err != nil {
			return err
		}

		for i := 0; i < opts.Posts; i++ {
			p := post{
				Author:    sd.pick(),
				Content:   sd.faker.Sentence(8 + sd.r.Intn(12)),
				CreatedAt: now.Add(-time.Duration(opts.Posts-i) * time.Hour),
			}
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("seed post: %w", err)
			}
			if err := sd.likes(targetPost, p.ID, 3); err != nil {
				return err
			}
			if err := sd.thread(p.ID, nil, p.CreatedAt, opts.MaxDepth); err != nil {
				return err
			}
		}
		return nil
	})
}

func (sd *seeder) users(n int) error {
	for len(sd.names) < n {
		name := sd.faker.Username()
		existing, err := findAccount(sd.tx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := sd.tx.Create(&account{Username: name, Guest: true}).Error; err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		sd.names = append(sd.names, name)
	}
	return nil
}

func (sd *seeder) pick() string {
	return sd.names[sd.r.Intn(len(sd.names))]
}

// likes has each seeded user like the target with probability 1/oneIn.
func (sd *seeder) likes(kind string, id int64, oneIn int) error {
	for _, name := range sd.names {
		if sd.r.Intn(oneIn) != 0 {
			continue
		}
		if err := sd.tx.Create(&like{TargetKind: kind, TargetID: id, Username: name}).Error; err != nil {
			return fmt.Errorf("seed like: %w", err)
		}
	}
	return nil
}

func (sd *seeder) thread(postID int64, parent *int64, after time.Time, depth int) error {
	if depth == 0 {
		return nil
	}
	n := sd.r.Intn(3)
	for i := 0; i < n; i++ {
		c := comment{
			PostID:    postID,
			ParentID:  parent,
			Author:    sd.pick(),
			Content:   fmt.Sprintf("%s %s", sd.faker.Interjection(), sd.faker.Sentence(6+sd.r.Intn(8))),
			CreatedAt: after.Add(time.Duration(i+1) * time.Minute),
		}
		if err := sd.tx.Create(&c).Error; err != nil {
			return fmt.Errorf("seed comment: %w", err)
		}
		if err := sd.likes(targetComment, c.ID, 4); err != nil {
			return err
		}
		id := c.ID
		if err := sd.thread(postID, &id, c.CreatedAt, depth-1); err != nil {
			return err
		}
	}
	return nil
}
