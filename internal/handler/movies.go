package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/movie-storefront/internal/model"
    "github.com/iliyamo/movie-storefront/internal/service"
)

// CatalogHandler serves the public catalog and the caller's library.
type CatalogHandler struct {
    Catalog *service.CatalogService
    Log     *zap.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, log *zap.Logger) *CatalogHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &CatalogHandler{Catalog: catalog, Log: log.Named("catalog_http")}
}

type movieResp struct {
    ID          uint64   `json:"id"`
    UUID        string   `json:"uuid"`
    Name        string   `json:"name"`
    Year        int      `json:"year"`
    Time        int      `json:"time"`
    IMDb        float64  `json:"imdb"`
    Votes       int      `json:"votes"`
    MetaScore   *float64 `json:"meta_score"`
    Gross       *float64 `json:"gross"`
    Description *string  `json:"description"`
    Price       string   `json:"price"`
    Available   bool     `json:"available"`
}

type movieDetailResp struct {
    movieResp
    Certification string   `json:"certification"`
    Genres        []string `json:"genres"`
    Stars         []string `json:"stars"`
    Directors     []string `json:"directors"`
    AvgRating     *float64 `json:"avg_rating"`
    Ratings       int      `json:"ratings"`
    Likes         int      `json:"likes"`
    Dislikes      int      `json:"dislikes"`
    Favorites     int      `json:"favorites"`
}

func toMovieResp(m model.Movie) movieResp {
    return movieResp{
        ID: m.ID, UUID: m.UUID, Name: m.Name, Year: m.Year, Time: m.Time,
        IMDb: m.IMDb, Votes: m.Votes, MetaScore: m.MetaScore, Gross: m.Gross,
        Description: m.Description, Price: money(m.Price), Available: m.Available,
    }
}

func toMovieList(ms []model.Movie) []movieResp {
    out := make([]movieResp, 0, len(ms))
    for _, m := range ms {
        out = append(out, toMovieResp(m))
    }
    return out
}

// List handles GET /v1/movies?page=&page_size=&q=.
func (h *CatalogHandler) List(c echo.Context) error {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    size, _ := strconv.Atoi(c.QueryParam("page_size"))
    p, err := h.Catalog.ListMovies(c.Request().Context(), c.QueryParam("q"), page, size)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "items":     toMovieList(p.Items),
        "page":      p.Page,
        "page_size": p.PageSize,
        "total":     p.Total,
    })
}

// Get handles GET /v1/movies/:id.
func (h *CatalogHandler) Get(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }
    d, err := h.Catalog.GetMovie(c.Request().Context(), id)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, movieDetailResp{
        movieResp:     toMovieResp(d.Movie),
        Certification: d.Certification,
        Genres:        nonNil(d.Genres),
        Stars:         nonNil(d.Stars),
        Directors:     nonNil(d.Directors),
        AvgRating:     d.AvgRating,
        Ratings:       d.Ratings,
        Likes:         d.Likes,
        Dislikes:      d.Dislikes,
        Favorites:     d.Favorites,
    })
}

// Library handles GET /v1/purchases: every movie the caller owns.
func (h *CatalogHandler) Library(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.Catalog.Library(c.Request().Context(), userID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    type entry struct {
        MovieID     uint64    `json:"movie_id"`
        OrderID     uint64    `json:"order_id"`
        PurchasedAt time.Time `json:"purchased_at"`
    }
    out := make([]entry, 0, len(items))
    for _, p := range items {
        out = append(out, entry{MovieID: p.MovieID, OrderID: p.OrderID, PurchasedAt: p.CreatedAt})
    }
    return c.JSON(http.StatusOK, out)
}

// Favorites handles GET /v1/favorites.
func (h *CatalogHandler) Favorites(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ms, err := h.Catalog.Favorites(c.Request().Context(), userID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, toMovieList(ms))
}

func nonNil(s []string) []string {
    if s == nil {
        return []string{}
    }
    return s
}
