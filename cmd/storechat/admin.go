package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"storechat/internal/bootstrap"
	"storechat/internal/config"
	"storechat/internal/model"
	"storechat/internal/repository"
	"storechat/internal/roles"
)

var grantRoleCmd = &cobra.Command{
	Use:   "grant-role <username> <role>",
	Short: "Grant a platform role (administrator, shop_manager, agent, designer, customer)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, role := args[0], args[1]
		if !roles.Valid(role) {
			return fmt.Errorf("unknown role %q", role)
		}
		return withDatabase(func(db *gorm.DB) error {
			users := repository.NewUserRepository(db)
			user, err := users.GetByUsername(username)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %q not found", username)
			}
			if err := users.AddRole(user.ID, role); err != nil {
				return err
			}
			log.Printf("granted %s to %s (id %d)", role, username, user.ID)
			return nil
		})
	},
}

var (
	productAuthor    string
	productPermalink string
	productMeta      string
)

var addProductCmd = &cobra.Command{
	Use:   "add-product <name>",
	Short: "Register a catalog product that chats can be tied to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		product := &model.Product{Name: args[0], Permalink: productPermalink}
		if productMeta != "" {
			meta := datatypes.JSONMap{}
			if err := json.Unmarshal([]byte(productMeta), &meta); err != nil {
				return fmt.Errorf("parse --meta failed: %w", err)
			}
			product.Meta = meta
		}
		return withDatabase(func(db *gorm.DB) error {
			if productAuthor != "" {
				author, err := repository.NewUserRepository(db).GetByUsername(productAuthor)
				if err != nil {
					return err
				}
				if author == nil {
					return fmt.Errorf("author %q not found", productAuthor)
				}
				product.AuthorID = author.ID
			}
			if err := repository.NewProductRepository(db).Create(product); err != nil {
				return err
			}
			log.Printf("created product %d %q", product.ID, product.Name)
			return nil
		})
	},
}

func init() {
	addProductCmd.Flags().StringVar(&productAuthor, "author", "", "username of the merchant who owns the product")
	addProductCmd.Flags().StringVar(&productPermalink, "permalink", "", "public product URL")
	addProductCmd.Flags().StringVar(&productMeta, "meta", "", `product metadata as JSON, e.g. {"designer_user_id": 7}`)

	rootCmd.AddCommand(grantRoleCmd)
	rootCmd.AddCommand(addProductCmd)
}

func withDatabase(fn func(db *gorm.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	db, err := bootstrap.OpenDatabase(context.Background(), cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return fn(db)
}
