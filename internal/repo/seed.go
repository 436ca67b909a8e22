package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/domain"
)

// DemoSkillpoints is the starting balance given to seeded demo users.
const DemoSkillpoints int64 = 10

// SeedResult reports how many rows SeedDemo inserted.
type SeedResult struct {
	Users    int
	Requests int
}

// SeedDemo inserts three demo users when the users table is empty and three
// demo requests when the requests table is empty. Both steps run in a single
// transaction; a non-empty table is left untouched. Demo requests whose
// creator email is not registered are skipped.
func SeedDemo(ctx context.Context, db *gorm.DB) (SeedResult, error) {
	var res SeedResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.User{}).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			for i := range demoUsers {
				u := demoUsers[i]
				u.Skillpoints = DemoSkillpoints
				if err := CreateUser(ctx, tx, &u); err != nil {
					return err
				}
				res.Users++
			}
		}

		if err := tx.Model(&domain.Request{}).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, d := range demoRequests {
			creator, err := GetUserByEmail(ctx, tx, d.creatorEmail)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			r := d.req
			r.CreatorID = &creator.ID
			r.CreatorName = &creator.Name
			if err := CreateRequest(ctx, tx, &r); err != nil {
				return err
			}
			res.Requests++
		}
		return nil
	})
	return res, err
}

var demoUsers = []domain.User{
	{
		FirstName: "Иван", LastName: "Иванов", Name: "Иванов Иван",
		Email: "ivan@test.ru", Password: "123456",
		SchoolClass: "10", Age: "16", City: "Москва", AvgGrade: "4.2", Gender: "male",
		Bio: "Люблю математику", ProfileConfigured: true,
	},
	{
		FirstName: "Ольга", LastName: "Олеговна", Name: "Олеговна Ольга",
		Email: "olga@test.ru", Password: "password",
		SchoolClass: "11", Age: "18", City: "СПб", AvgGrade: "4.53", Gender: "female",
		Bio: "Готова помочь с обществознанием", ProfileConfigured: true,
	},
	{
		FirstName: "Анна", LastName: "Петрова", Name: "Петрова Анна",
		Email: "anna@test.ru", Password: "pwd123",
		SchoolClass: "9", Age: "15", City: "Казань", AvgGrade: "4.0", Gender: "female",
	},
}

var demoRequests = []struct {
	creatorEmail string
	req          domain.Request
}{
	{"olga@test.ru", domain.Request{
		Title: "Обществознание (7-8 класс)", Subject: "Обществознание",
		Text:      "Нужна помощь с темой права и обязанностей.",
		ClassFrom: "7", ClassTo: "8", Type: domain.RequestAsk,
	}},
	{"ivan@test.ru", domain.Request{
		Title: "Математика: задачи на проценты", Subject: "Математика",
		Text:      "Нужна помощь с задачами на проценты и смешанные числа.",
		ClassFrom: "9", ClassTo: "11", Type: domain.RequestAsk,
	}},
	{"anna@test.ru", domain.Request{
		Title: "Алгебра: формулы сокращенного умножения", Subject: "Алгебра",
		Text:      "Разобрать формулы и примеры их применения.",
		ClassFrom: "8", ClassTo: "9", Type: domain.RequestAsk,
	}},
}
