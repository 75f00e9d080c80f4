package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Movie is a catalog entry that can be put in a cart and bought.  Price is
// the live catalog price; orders copy it into OrderItem.PriceAtOrder so later
// catalog edits never change what a user was charged.
//
// Fields:
//  ID              – primary key identifier.
//  UUID            – immutable public identifier.
//  Name            – display title, also used as the checkout line name.
//  Year            – release year.
//  Time            – runtime in minutes.
//  IMDb            – IMDb score.
//  Votes           – IMDb vote count.
//  MetaScore       – Metacritic score (nullable).
//  Gross           – box office gross (nullable).
//  Description     – synopsis (nullable).
//  Price           – current price with two decimal places.
//  Available       – whether the movie can currently be ordered.
//  CertificationID – reference to certifications.
type Movie struct {
    ID              uint64          // movies.id
    UUID            string          // movies.uuid
    Name            string          // movies.name
    Year            int             // movies.year
    Time            int             // movies.time
    IMDb            float64         // movies.imdb
    Votes           int             // movies.votes
    MetaScore       *float64        // movies.meta_score (nullable)
    Gross           *float64        // movies.gross (nullable)
    Description     *string         // movies.description (nullable)
    Price           decimal.Decimal // movies.price
    Available       bool            // movies.available
    CertificationID uint64          // movies.certification_id
    CreatedAt       time.Time       // movies.created_at
}

// MovieDetail is a movie with its related names and social aggregates.
type MovieDetail struct {
    Movie
    Certification string
    Genres        []string
    Stars         []string
    Directors     []string
    AvgRating     *float64
    Ratings       int
    Likes         int
    Dislikes      int
    Favorites     int
}
